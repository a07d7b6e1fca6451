package shopify

import (
	"strconv"
	"strings"
	"time"
)

// ==========================================
// GraphQL Admin API 原始响应
// ==========================================

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse[T any] struct {
	Data   T              `json:"data"`
	Errors []graphQLError `json:"errors"`
}

type pageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

// GraphQLLineItem orders.lineItems 节点
type GraphQLLineItem struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Vendor   string `json:"vendor"`
	Quantity int    `json:"quantity"`
	Image    *struct {
		URL string `json:"url"`
	} `json:"image"`
	Product *struct {
		ID string `json:"id"`
	} `json:"product"`
	Variant *struct {
		ID string `json:"id"`
	} `json:"variant"`
}

// GraphQLOrder orders 节点
type GraphQLOrder struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	CreatedAt *time.Time `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt"`
	LineItems struct {
		Edges []struct {
			Node GraphQLLineItem `json:"node"`
		} `json:"edges"`
	} `json:"lineItems"`
}

type ordersData struct {
	Orders struct {
		Edges []struct {
			Cursor string       `json:"cursor"`
			Node   GraphQLOrder `json:"node"`
		} `json:"edges"`
		PageInfo pageInfo `json:"pageInfo"`
	} `json:"orders"`
}

type productVendorsData struct {
	Products struct {
		Edges []struct {
			Node struct {
				Vendor string `json:"vendor"`
			} `json:"node"`
		} `json:"edges"`
		PageInfo pageInfo `json:"pageInfo"`
	} `json:"products"`
}

type shopData struct {
	Shop struct {
		Name            string `json:"name"`
		Email           string `json:"email"`
		MyshopifyDomain string `json:"myshopifyDomain"`
	} `json:"shop"`
}

// ToOrder GraphQL 订单 -> 规范化订单
func (o GraphQLOrder) ToOrder() (Order, error) {
	id, err := ParseGID(o.ID)
	if err != nil {
		return Order{}, err
	}

	out := Order{
		ExternalID: id,
		Name:       o.Name,
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}
	for _, edge := range o.LineItems.Edges {
		n := edge.Node
		item := LineItem{
			Title:      n.Title,
			VendorName: strings.TrimSpace(n.Vendor),
			Quantity:   n.Quantity,
		}
		item.ExternalID, _ = ParseGID(n.ID)
		if n.Image != nil {
			item.ImageURL = n.Image.URL
		}
		if n.Product != nil {
			item.ProductID, _ = ParseGID(n.Product.ID)
		}
		if n.Variant != nil {
			item.VariantID, _ = ParseGID(n.Variant.ID)
		}
		out.LineItems = append(out.LineItems, item)
	}
	return out, nil
}

// ==========================================
// Webhook (REST) 订单载荷
// ==========================================

// RESTLineItem REST 订单明细
type RESTLineItem struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Vendor    string `json:"vendor"`
	Quantity  int    `json:"quantity"`
	ProductID *int64 `json:"product_id"`
	VariantID *int64 `json:"variant_id"`
}

// RESTOrder orders/* webhook 载荷
type RESTOrder struct {
	ID                int64          `json:"id"`
	AdminGraphqlAPIID string         `json:"admin_graphql_api_id"`
	Name              string         `json:"name"`
	CreatedAt         *time.Time     `json:"created_at"`
	UpdatedAt         *time.Time     `json:"updated_at"`
	LineItems         []RESTLineItem `json:"line_items"`
}

// ToOrder REST 订单 -> 规范化订单
func (o RESTOrder) ToOrder() (Order, error) {
	id := o.ID
	if id == 0 {
		parsed, err := ParseGID(o.AdminGraphqlAPIID)
		if err != nil {
			return Order{}, err
		}
		id = parsed
	}

	out := Order{
		ExternalID: id,
		Name:       o.Name,
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}
	if out.Name == "" {
		out.Name = "#" + strconv.FormatInt(id, 10)
	}
	for _, li := range o.LineItems {
		item := LineItem{
			ExternalID: li.ID,
			Title:      li.Title,
			VendorName: strings.TrimSpace(li.Vendor),
			Quantity:   li.Quantity,
		}
		if li.ProductID != nil {
			item.ProductID = *li.ProductID
		}
		if li.VariantID != nil {
			item.VariantID = *li.VariantID
		}
		out.LineItems = append(out.LineItems, item)
	}
	return out, nil
}
