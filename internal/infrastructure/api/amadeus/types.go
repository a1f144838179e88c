// internal/infrastructure/api/amadeus/types.go
package amadeus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// API ENDPOINTS
// ============================================

const (
	tokenPath       = "/v1/security/oauth2/token"
	hotelsByCity    = "/v1/reference-data/locations/hotels/by-city"
	hotelOffersPath = "/v3/shopping/hotel-offers"
)

// RESPONSES
// ============================================

// hotelListResponse ответ by-city
type hotelListResponse struct {
	Data []hotelRef `json:"data"`
}

type hotelRef struct {
	HotelID string  `json:"hotelId"`
	Name    string  `json:"name"`
	GeoCode geoCode `json:"geoCode"`
}

type geoCode struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// offersResponse ответ hotel-offers
type offersResponse struct {
	Data []hotelOffers `json:"data"`
}

type hotelOffers struct {
	Available bool       `json:"available"`
	Hotel     hotelInfo  `json:"hotel"`
	Offers    []roomDeal `json:"offers"`
}

type hotelInfo struct {
	HotelID  string    `json:"hotelId"`
	Name     string    `json:"name"`
	CityCode string    `json:"cityCode"`
	Rating   flexFloat `json:"rating"`
}

type roomDeal struct {
	ID    string `json:"id"`
	Price struct {
		Currency string `json:"currency"`
		Total    string `json:"total"`
	} `json:"price"`
	Room struct {
		TypeEstimated struct {
			Category string `json:"category"`
		} `json:"typeEstimated"`
	} `json:"room"`
}

func (d roomDeal) total() float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(d.Price.Total), 64)
	if err != nil {
		return 0
	}
	return v
}

// flexFloat число, которое API отдает то строкой, то числом
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if strings.TrimSpace(s) == "" {
			*f = 0
			return nil
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("rating %q: %w", s, err)
		}
		*f = flexFloat(v)
		return nil
	}

	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

// ERRORS
// ============================================

type errorResponse struct {
	Errors []struct {
		Status int    `json:"status"`
		Code   int    `json:"code"`
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

// APIError ошибка, которую вернул Amadeus
type APIError struct {
	StatusCode int
	Code       int
	Title      string
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("amadeus API error %d (code %d): %s: %s", e.StatusCode, e.Code, e.Title, e.Detail)
	}
	return fmt.Sprintf("amadeus API error %d (code %d): %s", e.StatusCode, e.Code, e.Title)
}

func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Title: strings.TrimSpace(string(body))}

	var resp errorResponse
	if err := json.Unmarshal(body, &resp); err == nil && len(resp.Errors) > 0 {
		first := resp.Errors[0]
		apiErr.Code = first.Code
		apiErr.Title = first.Title
		apiErr.Detail = first.Detail
	}
	if len(apiErr.Title) > 200 {
		apiErr.Title = apiErr.Title[:200]
	}
	return apiErr
}
