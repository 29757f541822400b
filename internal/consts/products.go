package consts

import "github.com/viosson-d/topoo-gateway/internal/model"

// Product 产品目录条目。目录是只读静态配置，本服务不做多产品管理。
type Product struct {
	Code        string
	Name        string
	DefaultPlan string
}

const DefaultProductCode = "topoo-gateway"

var ProductCatalog = map[string]Product{
	"topoo-gateway": {
		Code:        "topoo-gateway",
		Name:        "Topoo Gateway",
		DefaultPlan: model.PlanTierFree,
	},
}

// LookupProduct 查询产品目录；未知产品码返回 false。
func LookupProduct(code string) (Product, bool) {
	p, ok := ProductCatalog[code]
	return p, ok
}
