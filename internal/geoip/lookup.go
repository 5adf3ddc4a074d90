package geoip

import (
	"fmt"

	"github.com/oschwald/geoip2-golang"

	"verify-ovpn/internal/utils"
)

type Database struct {
	reader *geoip2.Reader
}

func Open(path string) (*Database, error) {
	r, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip database: %w", err)
	}
	return &Database{reader: r}, nil
}

// Country returns the ISO code for the endpoint's host. Host names are not
// resolved and report an empty code.
func (d *Database) Country(endpoint string) string {
	if d == nil || d.reader == nil {
		return ""
	}

	ip := utils.HostIP(endpoint)
	if ip == nil {
		return ""
	}

	record, err := d.reader.Country(ip)
	if err != nil || record.Country.IsoCode == "" {
		return "UNKNOWN"
	}
	return record.Country.IsoCode
}

func (d *Database) Close() error {
	if d == nil || d.reader == nil {
		return nil
	}
	return d.reader.Close()
}
