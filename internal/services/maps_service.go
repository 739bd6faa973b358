package services

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"googlemaps.github.io/maps"
)

var (
	mapsClient  *maps.Client
	ErrNoAPIKey = errors.New("GOOGLE_MAPS_API_KEY environment variable not set")
)

// InitMapsClient initializes the Google Maps client
func InitMapsClient() error {
	apiKey := os.Getenv("GOOGLE_MAPS_API_KEY")
	if apiKey == "" {
		return ErrNoAPIKey
	}

	var err error
	mapsClient, err = maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return err
	}

	return nil
}

// NormalizedLocation holds a lead location resolved to standard
// country and city names. Imported lead data spells countries every
// which way; reports group by country so the names must match.
type NormalizedLocation struct {
	Country          string `json:"country"`
	City             string `json:"city"`
	FormattedAddress string `json:"formatted_address"`
}

// NormalizeLeadLocation geocodes a free-text location and returns the
// standard country and city names.
func NormalizeLeadLocation(country, city string) (*NormalizedLocation, error) {
	if mapsClient == nil {
		if err := InitMapsClient(); err != nil {
			return nil, err
		}
	}

	query := strings.TrimSpace(strings.Join([]string{city, country}, ", "))
	query = strings.Trim(query, ", ")
	if query == "" {
		return nil, errors.New("no location to normalize")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	results, err := mapsClient.Geocode(ctx, &maps.GeocodingRequest{Address: query})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, errors.New("location not found")
	}

	loc := &NormalizedLocation{FormattedAddress: results[0].FormattedAddress}
	for _, component := range results[0].AddressComponents {
		for _, t := range component.Types {
			switch t {
			case "country":
				loc.Country = component.LongName
			case "locality", "administrative_area_level_1":
				if loc.City == "" {
					loc.City = component.LongName
				}
			}
		}
	}
	return loc, nil
}
