package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type productInput struct {
	Title    string   `json:"title" validate:"required,max=10"`
	Price    float64  `json:"price" validate:"gte=0"`
	MRP      float64  `json:"mrp" validate:"omitempty,gtefield=Price"`
	Rating   float64  `json:"rating" validate:"gte=0,lte=5"`
	Category string   `json:"category" validate:"omitempty,oneof=laptops tablets"`
	Images   []string `json:"images" validate:"max=2"`
}

type queryInput struct {
	Page int `query:"page" validate:"gte=1"`
}

func TestValidate_OK(t *testing.T) {
	in := productInput{Title: "Pixel", Price: 100, MRP: 120, Rating: 4.2, Category: "tablets"}
	assert.NoError(t, Validate(in))
}

func TestValidate_UsesWireNames(t *testing.T) {
	err := Validate(productInput{Price: -1, Rating: 7})
	require.Error(t, err)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	fields := ve.Fields()
	assert.Equal(t, "is required", fields["title"])
	assert.Equal(t, "must be greater than or equal to 0", fields["price"])
	assert.Equal(t, "must be less than or equal to 5", fields["rating"])
}

func TestValidate_QueryTag(t *testing.T) {
	var ve *ValidationError
	require.ErrorAs(t, Validate(queryInput{}), &ve)
	assert.Contains(t, ve.Fields(), "page")
}

func TestValidate_Messages(t *testing.T) {
	in := productInput{
		Title:    "a very long product title",
		Price:    200,
		MRP:      100,
		Category: "fridges",
		Images:   []string{"a", "b", "c"},
	}
	var ve *ValidationError
	require.ErrorAs(t, Validate(in), &ve)

	fields := ve.Fields()
	assert.Equal(t, "must contain at most 10 items", fields["title"])
	assert.Equal(t, "must not be less than Price", fields["mrp"])
	assert.Equal(t, "must be one of: laptops tablets", fields["category"])
	assert.Equal(t, "must contain at most 2 items", fields["images"])
	assert.Contains(t, ve.Error(), "field 'category'")
}

func TestDecodeAndValidate(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"Pixel","price":10}`))
	var in productInput
	require.NoError(t, DecodeAndValidate(r, &in))
	assert.Equal(t, "Pixel", in.Title)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{bad json`))
	err := DecodeAndValidate(r, &in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"price":10}`))
	var ve *ValidationError
	require.ErrorAs(t, DecodeAndValidate(r, &productInput{}), &ve)
}
