package request

import (
	"errors"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/shopspring/decimal"
)

var errInvalidPrice = errors.New("price must be a decimal number such as 2.50")

type CreateRaffleRequest struct {
	Title       string          `json:"title" example:"iPhone 15 Pro"`
	Description string          `json:"description" example:"Sorteio pela loteria federal"`
	Price       decimal.Decimal `json:"price" swaggertype:"string" example:"2.50"`
	TotalQuotas int             `json:"total_quotas" example:"1000"`
	ImageURL    string          `json:"image_url" example:"https://cdn.example.com/iphone.png"`
	QuickSelect []int           `json:"quick_select" example:"10,25,50"`
	Activate    bool            `json:"activate"`
}

// Validate only checks the shape of the request. Business rules are enforced by the service.
func (req *CreateRaffleRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Title, validation.Required),
		validation.Field(&req.TotalQuotas, validation.Required),
		validation.Field(&req.ImageURL, is.URL),
	)
}

// CreateRaffleForm is the multipart variant used by the admin panel. The image is only
// kept as a reference; uploads are stored elsewhere.
type CreateRaffleForm struct {
	Title       string `form:"title"`
	Description string `form:"description"`
	Price       string `form:"price"`
	TotalQuotas int    `form:"total_quotas"`
	ImageURL    string `form:"image_url"`
	QuickSelect string `form:"quick_select"`
	Activate    bool   `form:"activate"`
}

func (f *CreateRaffleForm) Validate() error {
	return validation.ValidateStruct(
		f,
		validation.Field(&f.Title, validation.Required),
		validation.Field(&f.Price, validation.Required),
		validation.Field(&f.TotalQuotas, validation.Required),
	)
}

// ToRequest parses the textual fields of the form. quick_select is a comma separated list.
func (f *CreateRaffleForm) ToRequest() (CreateRaffleRequest, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(f.Price))
	if err != nil {
		return CreateRaffleRequest{}, errInvalidPrice
	}

	var quick []int
	for _, raw := range strings.Split(f.QuickSelect, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return CreateRaffleRequest{}, errors.New("quick_select must be a comma separated list of integers")
		}
		quick = append(quick, n)
	}

	return CreateRaffleRequest{
		Title:       f.Title,
		Description: f.Description,
		Price:       price,
		TotalQuotas: f.TotalQuotas,
		ImageURL:    f.ImageURL,
		QuickSelect: quick,
		Activate:    f.Activate,
	}, nil
}

// UpdateRaffleRequest changes presentation fields only. Price and total are fixed once quotas exist.
type UpdateRaffleRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	ImageURL    *string `json:"image_url"`
	QuickSelect []int   `json:"quick_select"`
}

func (req *UpdateRaffleRequest) Validate() error {
	if req.Title == nil && req.Description == nil && req.ImageURL == nil && req.QuickSelect == nil {
		return errors.New("nothing to update")
	}

	return validation.ValidateStruct(
		req,
		validation.Field(&req.ImageURL, is.URL),
	)
}
