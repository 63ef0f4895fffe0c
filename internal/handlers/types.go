package handlers

import "time"

// ShortenRequest is the request body for shortening a URL.
type ShortenRequest struct {
	Body struct {
		URL    string `doc:"The URL to shorten"                       example:"https://example.com/very/long/path" json:"url"              maxLength:"2048" minLength:"1"`
		Custom string `doc:"Optional custom label used as identifier" example:"launch"                             json:"custom,omitempty" maxLength:"64"   pattern:"^[A-Za-z0-9_-]+$"`
	}
}

// ShortenResponse is the response for a shortened URL.
type ShortenResponse struct {
	Headers struct {
		Location string `doc:"The short URL location" header:"Location"`
	}
	Body struct {
		Identifier  string `doc:"The short identifier"        example:"1"                                  json:"identifier"`
		ShortURL    string `doc:"The full short URL"          example:"http://localhost:8888/1"            json:"shortUrl"`
		InfoURL     string `doc:"Where the link's stats live" example:"http://localhost:8888/info/1"       json:"infoUrl"`
		OriginalURL string `doc:"The original URL"            example:"https://example.com/very/long/path" json:"originalUrl"`
	}
}

// RedirectRequest is the request for following a short URL.
type RedirectRequest struct {
	Identifier string `doc:"The short identifier" example:"1" path:"identifier"`
}

// RedirectResponse sends the visitor to the original URL.
type RedirectResponse struct {
	Status  int
	Headers struct {
		Location string `header:"Location"`
	}
}

// InfoRequest asks for a link's visit statistics.
type InfoRequest struct {
	Identifier string `doc:"The short identifier"                  example:"1" path:"identifier"`
	Days       int    `default:"15" doc:"Days of history before today" maximum:"365" minimum:"0" query:"days"`
	Region     string `default:"world" doc:"Map region: world, usa, asia, europe, africa, middle_east, south_america" query:"region"`
}

// DailyPoint is one day of the daily series.
type DailyPoint struct {
	Date  string `example:"2024-03-10" json:"date"`
	Count int64  `json:"count"`
}

// CountryPoint is one country of the country series.
type CountryPoint struct {
	Country string `example:"US" json:"country"`
	Count   int64  `json:"count"`
}

// Charts holds the chart image URLs for a link.
type Charts struct {
	Daily      string `json:"daily"`
	CountryMap string `json:"countryMap"`
	CountryBar string `json:"countryBar"`
}

// InfoResponse describes a link and its visits.
type InfoResponse struct {
	Body struct {
		Identifier           string         `json:"identifier"`
		ShortURL             string         `json:"shortUrl"`
		OriginalURL          string         `json:"originalUrl"`
		CreatedAt            time.Time      `json:"createdAt"`
		TotalVisits          int64          `json:"totalVisits"`
		UnknownCountryVisits int64          `doc:"Visits whose country could not be determined" json:"unknownCountryVisits"`
		Days                 int            `json:"days"`
		Region               string         `json:"region"`
		Daily                []DailyPoint   `doc:"Visits per UTC day, most recent first" json:"daily"`
		Countries            []CountryPoint `json:"countries"`
		Charts               Charts         `json:"charts"`
	}
}
