package cfg

import (
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/linnemanlabs/beacon/internal/geo"
)

// Config holds the application-specific configuration for the beacon server.
// It is constructed once at startup, validated, and passed explicitly into
// component constructors; nothing reads it ambiently mid-workflow.
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	APIToken              string

	DatabaseURL string

	DispatchEndpoint string
	DispatchAPIKey   string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	EmailFrom    string

	IPLocateEndpoint string
	GeocodeEndpoint  string

	DefaultLatitude  float64
	DefaultLongitude float64

	ChannelTimeoutSeconds int
	LookupTimeoutSeconds  int
	LocationStaleSeconds  int
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.APIToken, "api-token", "", "bearer token required on API requests (empty = auth disabled)")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = in-memory store)")
	fs.StringVar(&c.DispatchEndpoint, "dispatch-endpoint", "", "emergency-services dispatch API endpoint")
	fs.StringVar(&c.DispatchAPIKey, "dispatch-api-key", "", "API key for the emergency-services dispatch API")
	fs.StringVar(&c.TwilioAccountSID, "twilio-account-sid", "", "Twilio account SID for SMS sends (empty = SMS channel disabled)")
	fs.StringVar(&c.TwilioAuthToken, "twilio-auth-token", "", "Twilio auth token for SMS sends")
	fs.StringVar(&c.TwilioFromNumber, "twilio-from-number", "", "Twilio phone number SMS messages are sent from")
	fs.StringVar(&c.SMTPHost, "smtp-host", "", "SMTP host for email sends (empty = email channel disabled)")
	fs.IntVar(&c.SMTPPort, "smtp-port", 587, "SMTP port")
	fs.StringVar(&c.SMTPUsername, "smtp-username", "", "SMTP username")
	fs.StringVar(&c.SMTPPassword, "smtp-password", "", "SMTP password")
	fs.StringVar(&c.EmailFrom, "email-from", "", "From address for outgoing email")
	fs.StringVar(&c.IPLocateEndpoint, "ip-locate-endpoint", "http://ip-api.com/json", "IP geolocation endpoint for the location fallback chain")
	fs.StringVar(&c.GeocodeEndpoint, "geocode-endpoint", "https://nominatim.openstreetmap.org/reverse", "reverse geocoding endpoint")
	fs.Float64Var(&c.DefaultLatitude, "default-latitude", 0, "latitude of the documented default fix used when no other source resolves")
	fs.Float64Var(&c.DefaultLongitude, "default-longitude", 0, "longitude of the documented default fix")
	fs.IntVar(&c.ChannelTimeoutSeconds, "channel-timeout-seconds", 10, "per-channel send timeout during notification fan-out (1..120)")
	fs.IntVar(&c.LookupTimeoutSeconds, "lookup-timeout-seconds", 5, "timeout for IP geolocation and reverse geocoding calls (1..60)")
	fs.IntVar(&c.LocationStaleSeconds, "location-stale-seconds", 3600, "age after which a stored location is flagged stale (still used, only logged)")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	// The dispatch channel is first-class; without an endpoint every trigger
	// would record it as attempted-and-failed.
	if c.DispatchEndpoint == "" {
		errs = append(errs, errors.New("DISPATCH_ENDPOINT is required"))
	}

	// Twilio credentials are all-or-nothing so a half-configured SMS channel
	// fails at startup rather than per alert.
	twilioSet := 0
	for _, v := range []string{c.TwilioAccountSID, c.TwilioAuthToken, c.TwilioFromNumber} {
		if v != "" {
			twilioSet++
		}
	}
	if twilioSet != 0 && twilioSet != 3 {
		errs = append(errs, errors.New("TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_FROM_NUMBER must be set together"))
	}

	if c.SMTPHost != "" {
		if c.SMTPPort <= 0 || c.SMTPPort > 65535 {
			errs = append(errs, fmt.Errorf("invalid SMTP_PORT %d (must be 1..65535)", c.SMTPPort))
		}
		if c.EmailFrom == "" || !strings.ContainsRune(c.EmailFrom, '@') {
			errs = append(errs, fmt.Errorf("invalid EMAIL_FROM %q", c.EmailFrom))
		}
	}

	if c.IPLocateEndpoint == "" {
		errs = append(errs, errors.New("IP_LOCATE_ENDPOINT is required"))
	}
	if c.GeocodeEndpoint == "" {
		errs = append(errs, errors.New("GEOCODE_ENDPOINT is required"))
	}

	if !geo.ValidCoordinates(c.DefaultLatitude, c.DefaultLongitude) {
		errs = append(errs, fmt.Errorf("invalid default fix %v, %v (latitude -90..90, longitude -180..180)", c.DefaultLatitude, c.DefaultLongitude))
	}

	if c.ChannelTimeoutSeconds <= 0 || c.ChannelTimeoutSeconds > 120 {
		errs = append(errs, fmt.Errorf("invalid CHANNEL_TIMEOUT_SECONDS %d (must be 1..120)", c.ChannelTimeoutSeconds))
	}
	if c.LookupTimeoutSeconds <= 0 || c.LookupTimeoutSeconds > 60 {
		errs = append(errs, fmt.Errorf("invalid LOOKUP_TIMEOUT_SECONDS %d (must be 1..60)", c.LookupTimeoutSeconds))
	}
	if c.LocationStaleSeconds < 0 {
		errs = append(errs, fmt.Errorf("invalid LOCATION_STALE_SECONDS %d (must be >= 0)", c.LocationStaleSeconds))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
