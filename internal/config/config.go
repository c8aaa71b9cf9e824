package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"

	"passengerexport/internal/domain"
)

// Environment variables consulted for options left empty on the command line.
const (
	EnvMongoURI    = "PASSENGER_EXPORT_MONGO_URI"
	EnvPgURI       = "PASSENGER_EXPORT_PG_URI"
	EnvCSVPath     = "PASSENGER_EXPORT_CSV_PATH"
	EnvPushgateway = "PASSENGER_EXPORT_PUSHGATEWAY"
)

// Options holds everything one export run needs.
type Options struct {
	MongoURI string
	PgURI    string
	CSVPath  string

	PushgatewayURL string
	LogLevel       string
	LogFormat      string // "text" | "json"
}

// Complete reports whether the three required values are present.
// When false the caller shows usage and does not run the export.
func (o Options) Complete() bool {
	return o.MongoURI != "" && o.PgURI != "" && o.CSVPath != ""
}

// ApplyEnv fills empty options from the process environment.
// Values already set (from flags) are kept.
func (o *Options) ApplyEnv() {
	fill := func(dst *string, key string) {
		if *dst == "" {
			*dst = os.Getenv(key)
		}
	}
	fill(&o.MongoURI, EnvMongoURI)
	fill(&o.PgURI, EnvPgURI)
	fill(&o.CSVPath, EnvCSVPath)
	fill(&o.PushgatewayURL, EnvPushgateway)
}

// LoadEnv loads a dotenv file into the environment without overriding
// variables that are already set. A missing file is not an error.
func LoadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: load env file %s: %v", domain.ErrConfig, path, err)
	}
	return nil
}

// DocumentURI is a parsed document-store URI.
type DocumentURI struct {
	ClientURI  string // URI handed to the driver, query string included
	Database   string
	Collection string
	ReplicaSet string // raw query string, e.g. "?replicaSet=rs0"
}

var documentURIPattern = regexp.MustCompile(`^(.+//.+/.+)/([^/?]+)(\?.+)?$`)

// ParseDocumentURI splits scheme://[host-and-auth/]database/collection[?query]
// into the client URI and the collection name.
func ParseDocumentURI(uri string) (DocumentURI, error) {
	m := documentURIPattern.FindStringSubmatch(uri)
	if m == nil {
		return DocumentURI{}, fmt.Errorf("%w: malformed URI %s", domain.ErrConfig, uri)
	}
	base, query := m[1], m[3]
	return DocumentURI{
		ClientURI:  base + query,
		Database:   base[strings.LastIndex(base, "/")+1:],
		Collection: m[2],
		ReplicaSet: query,
	}, nil
}

// MaskPassword hides the password of a URI's userinfo for logging.
func MaskPassword(uri string) string {
	scheme := strings.Index(uri, "://")
	if scheme == -1 {
		return uri
	}
	rest := uri[scheme+3:]
	at := strings.Index(rest, "@")
	if at == -1 {
		return uri
	}
	userinfo := rest[:at]
	colon := strings.Index(userinfo, ":")
	if colon == -1 {
		return uri
	}
	return uri[:scheme+3] + userinfo[:colon] + ":***" + rest[at:]
}
