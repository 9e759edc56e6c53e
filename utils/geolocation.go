package utils

import (
	"net"
	"sync"

	"github.com/oschwald/geoip2-golang"
	"go.uber.org/zap"
)

type GeoLocation struct {
	Country string
	City    string
	Lat     float64
	Lon     float64
}

// GeoResolver looks IPs up in a MaxMind city database. A resolver without a
// database (or a nil one) answers every lookup with "not found".
type GeoResolver struct {
	db    *geoip2.Reader
	cache sync.Map // map[string]GeoLocation
}

// NewGeoResolver opens dbPath. An empty path yields a resolver with no
// database; an unreadable file is an error the caller may choose to ignore.
func NewGeoResolver(dbPath string, logger *zap.Logger) (*GeoResolver, error) {
	if dbPath == "" {
		return &GeoResolver{}, nil
	}

	db, err := geoip2.Open(dbPath)
	if err != nil {
		return &GeoResolver{}, err
	}
	logger.Info("GeoIP database loaded", zap.String("path", dbPath))

	return &GeoResolver{db: db}, nil
}

func (g *GeoResolver) Close() {
	if g != nil && g.db != nil {
		g.db.Close()
	}
}

// Enabled reports whether lookups can succeed.
func (g *GeoResolver) Enabled() bool {
	return g != nil && g.db != nil
}

// Lookup is safe to call even if GeoResolver is nil or has no database
func (g *GeoResolver) Lookup(ipStr string) (GeoLocation, bool) {
	if !g.Enabled() {
		return GeoLocation{}, false
	}

	if val, ok := g.cache.Load(ipStr); ok {
		loc := val.(GeoLocation)
		return loc, loc.Country != ""
	}

	var loc GeoLocation
	if ip := net.ParseIP(ipStr); ip != nil {
		if record, err := g.db.City(ip); err == nil {
			loc = GeoLocation{
				Country: record.Country.Names["en"],
				City:    record.City.Names["en"],
				Lat:     record.Location.Latitude,
				Lon:     record.Location.Longitude,
			}
		}
	}

	// Misses are cached too
	g.cache.Store(ipStr, loc)
	return loc, loc.Country != ""
}
