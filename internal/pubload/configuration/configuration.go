package configuration

import (
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/armadaproject/pubload/internal/common/publoaderrors"
)

const (
	DefaultTargetUrl          = "http://localhost:8080/publish"
	DefaultVirtualUsers       = 50
	DefaultDuration           = 20 * time.Second
	DefaultBatchSize          = 50
	DefaultPoolSize           = 14000
	DefaultPoolHitProbability = 0.30
	DefaultRequestTimeout     = 30 * time.Second
	DefaultPaceDelay          = 100 * time.Millisecond
	DefaultSource             = "pubload"
	DefaultProgressInterval   = 5 * time.Second
	DefaultReportFormat       = ReportFormatJson
	DefaultMaxErrorsToCollect = 10

	ReportFormatJson = "json"
	ReportFormatYaml = "yaml"

	EnvPrefix    = "PUBLOAD"
	TargetUrlEnv = "TARGET_URL"
)

var DefaultTopics = []string{"auth", "payment", "orders"}

// LoadConfig holds every option of a run.
type LoadConfig struct {
	// Endpoint receiving the POSTed batches.
	TargetUrl string `mapstructure:"targetUrl"`
	// Number of concurrent virtual users.
	VirtualUsers int `mapstructure:"virtualUsers"`
	// Wall clock time after which no new iterations start.
	Duration time.Duration `mapstructure:"duration"`
	// Events per request.
	BatchSize int `mapstructure:"batchSize"`
	// Number of reusable identifiers.
	PoolSize int `mapstructure:"poolSize"`
	// Probability that an event reuses an identifier from the pool.
	PoolHitProbability float64 `mapstructure:"poolHitProbability"`
	// Upper bound on a single publish request.
	RequestTimeout time.Duration `mapstructure:"requestTimeout"`
	// Pause after each dispatch before the next iteration.
	PaceDelay time.Duration `mapstructure:"paceDelay"`
	// Value of the source field of every event.
	Source string `mapstructure:"source"`
	// Topics events are spread over uniformly.
	Topics []string `mapstructure:"topics"`
	// How often progress is logged. Zero disables progress logging.
	ProgressInterval time.Duration `mapstructure:"progressInterval"`
	// If set, the final report is written here.
	ReportFile string `mapstructure:"reportFile"`
	// json or yaml.
	ReportFormat string `mapstructure:"reportFormat"`
	// Port serving /metrics and /health during the run. Zero disables the endpoint.
	MetricsPort uint16 `mapstructure:"metricsPort"`
	// Number of distinct rejection messages kept for the report.
	MaxErrorsToCollect int `mapstructure:"maxErrorsToCollect"`
}

// Default returns the configuration used when no option is given.
func Default() LoadConfig {
	return LoadConfig{
		TargetUrl:          DefaultTargetUrl,
		VirtualUsers:       DefaultVirtualUsers,
		Duration:           DefaultDuration,
		BatchSize:          DefaultBatchSize,
		PoolSize:           DefaultPoolSize,
		PoolHitProbability: DefaultPoolHitProbability,
		RequestTimeout:     DefaultRequestTimeout,
		PaceDelay:          DefaultPaceDelay,
		Source:             DefaultSource,
		Topics:             append([]string{}, DefaultTopics...),
		ProgressInterval:   DefaultProgressInterval,
		ReportFormat:       DefaultReportFormat,
		MaxErrorsToCollect: DefaultMaxErrorsToCollect,
	}
}

// SetDefaults registers the defaults of every option with v so that Unmarshal sees all keys.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("targetUrl", d.TargetUrl)
	v.SetDefault("virtualUsers", d.VirtualUsers)
	v.SetDefault("duration", d.Duration)
	v.SetDefault("batchSize", d.BatchSize)
	v.SetDefault("poolSize", d.PoolSize)
	v.SetDefault("poolHitProbability", d.PoolHitProbability)
	v.SetDefault("requestTimeout", d.RequestTimeout)
	v.SetDefault("paceDelay", d.PaceDelay)
	v.SetDefault("source", d.Source)
	v.SetDefault("topics", d.Topics)
	v.SetDefault("progressInterval", d.ProgressInterval)
	v.SetDefault("reportFile", d.ReportFile)
	v.SetDefault("reportFormat", d.ReportFormat)
	v.SetDefault("metricsPort", d.MetricsPort)
	v.SetDefault("maxErrorsToCollect", d.MaxErrorsToCollect)
}

// BindEnv makes every option readable from PUBLOAD_<OPTION>, and the target from TARGET_URL too.
func BindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	return errors.WithStack(v.BindEnv("targetUrl", TargetUrlEnv, EnvPrefix+"_TARGETURL"))
}

// DecodeHooks must be passed to viper.Unmarshal when loading a LoadConfig.
var DecodeHooks = []viper.DecoderConfigOption{
	viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		StringListHookFunc(),
	)),
}

// StringListHookFunc decodes "a, b,c" into []string{"a", "b", "c"}, dropping empty elements.
func StringListHookFunc() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf([]string{}) {
			return data, nil
		}
		return splitList(data.(string)), nil
	}
}

func splitList(s string) []string {
	result := []string{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}

// Load reads a LoadConfig from v. The result is not validated.
func Load(v *viper.Viper) (LoadConfig, error) {
	config := Default()
	// mapstructure decodes into an existing slice in place, which would keep trailing defaults.
	config.Topics = nil
	if err := v.Unmarshal(&config, DecodeHooks...); err != nil {
		return LoadConfig{}, errors.WithMessage(err, "decoding configuration")
	}
	if config.Topics == nil {
		config.Topics = append([]string{}, DefaultTopics...)
	}
	return config, nil
}

// Validate returns an error listing every invalid option, or nil.
func (c LoadConfig) Validate() error {
	var result *multierror.Error

	invalid := func(name string, value interface{}, message string) {
		result = multierror.Append(result, errors.WithStack(&publoaderrors.ErrInvalidArgument{
			Name:    name,
			Value:   value,
			Message: message,
		}))
	}

	if err := validateTargetUrl(c.TargetUrl); err != nil {
		invalid("targetUrl", c.TargetUrl, err.Error())
	}
	if c.VirtualUsers <= 0 {
		invalid("virtualUsers", c.VirtualUsers, "must be positive")
	}
	if c.Duration <= 0 {
		invalid("duration", c.Duration, "must be positive")
	}
	if c.BatchSize <= 0 {
		invalid("batchSize", c.BatchSize, "must be positive")
	}
	if c.PoolSize <= 0 {
		invalid("poolSize", c.PoolSize, "must be positive")
	}
	if c.PoolHitProbability < 0 || c.PoolHitProbability > 1 {
		invalid("poolHitProbability", c.PoolHitProbability, "must be between 0 and 1")
	}
	if c.RequestTimeout <= 0 {
		invalid("requestTimeout", c.RequestTimeout, "must be positive")
	}
	if c.PaceDelay < 0 {
		invalid("paceDelay", c.PaceDelay, "must be non-negative")
	}
	if strings.TrimSpace(c.Source) == "" {
		invalid("source", c.Source, "must not be empty")
	}
	if err := validateTopics(c.Topics); err != nil {
		invalid("topics", c.Topics, err.Error())
	}
	if c.ProgressInterval < 0 {
		invalid("progressInterval", c.ProgressInterval, "must be non-negative")
	}
	if c.ReportFormat != ReportFormatJson && c.ReportFormat != ReportFormatYaml {
		invalid("reportFormat", c.ReportFormat, "must be json or yaml")
	}
	if c.MaxErrorsToCollect < 0 {
		invalid("maxErrorsToCollect", c.MaxErrorsToCollect, "must be non-negative")
	}

	return result.ErrorOrNil()
}

func validateTargetUrl(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return errors.New("not a valid url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("scheme must be http or https")
	}
	if u.Host == "" {
		return errors.New("host must not be empty")
	}
	return nil
}

func validateTopics(topics []string) error {
	if len(topics) == 0 {
		return errors.New("at least one topic is required")
	}
	seen := make(map[string]bool, len(topics))
	for _, topic := range topics {
		if strings.TrimSpace(topic) == "" {
			return errors.New("topics must not be empty")
		}
		if seen[topic] {
			return errors.Errorf("topic %s is listed twice", topic)
		}
		seen[topic] = true
	}
	return nil
}

// SinkConfig holds the options of the local sink.
type SinkConfig struct {
	Port uint16 `mapstructure:"port"`
	// How long an event id is remembered for deduplication.
	DedupTtl time.Duration `mapstructure:"dedupTtl"`
	// Number of recently inserted events kept for GET /events. Zero disables the listing.
	RecentEvents int `mapstructure:"recentEvents"`
}

const (
	DefaultSinkPort         = 8080
	DefaultSinkDedupTtl     = time.Hour
	DefaultSinkRecentEvents = 10000
)

func DefaultSink() SinkConfig {
	return SinkConfig{
		Port:         DefaultSinkPort,
		DedupTtl:     DefaultSinkDedupTtl,
		RecentEvents: DefaultSinkRecentEvents,
	}
}

// SetSinkDefaults is SetDefaults for SinkConfig.
func SetSinkDefaults(v *viper.Viper) {
	d := DefaultSink()
	v.SetDefault("port", d.Port)
	v.SetDefault("dedupTtl", d.DedupTtl)
	v.SetDefault("recentEvents", d.RecentEvents)
}

// LoadSink reads a SinkConfig from v. The result is not validated.
func LoadSink(v *viper.Viper) (SinkConfig, error) {
	config := DefaultSink()
	if err := v.Unmarshal(&config, DecodeHooks...); err != nil {
		return SinkConfig{}, errors.WithMessage(err, "decoding sink configuration")
	}
	return config, nil
}

func (c SinkConfig) Validate() error {
	var result *multierror.Error
	invalid := func(name string, value interface{}, message string) {
		result = multierror.Append(result, errors.WithStack(&publoaderrors.ErrInvalidArgument{
			Name:    name,
			Value:   value,
			Message: message,
		}))
	}
	if c.Port == 0 {
		invalid("port", c.Port, "must be positive")
	}
	if c.DedupTtl <= 0 {
		invalid("dedupTtl", c.DedupTtl, "must be positive")
	}
	if c.RecentEvents < 0 {
		invalid("recentEvents", c.RecentEvents, "must be non-negative")
	}
	return result.ErrorOrNil()
}
