package configuration

import (
	"bytes"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armadaproject/pubload/internal/common/publoaderrors"
)

func TestLoadConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*LoadConfig)
		wantErr bool
		errText string
	}{
		{
			name:   "defaults",
			modify: func(c *LoadConfig) {},
		},
		{
			name:   "https target",
			modify: func(c *LoadConfig) { c.TargetUrl = "https://ingest.example.com/publish" },
		},
		{
			name:   "zero pace delay",
			modify: func(c *LoadConfig) { c.PaceDelay = 0 },
		},
		{
			name:   "pool disabled by probability",
			modify: func(c *LoadConfig) { c.PoolHitProbability = 0 },
		},
		{
			name:    "zero pool size",
			modify:  func(c *LoadConfig) { c.PoolSize = 0 },
			wantErr: true,
			errText: `"poolSize"; must be positive`,
		},
		{
			name:    "negative pool size",
			modify:  func(c *LoadConfig) { c.PoolSize = -5 },
			wantErr: true,
			errText: `"poolSize"; must be positive`,
		},
		{
			name:    "malformed target url",
			modify:  func(c *LoadConfig) { c.TargetUrl = "http://[::1" },
			wantErr: true,
			errText: "not a valid url",
		},
		{
			name:    "target url without scheme",
			modify:  func(c *LoadConfig) { c.TargetUrl = "localhost:8080/publish" },
			wantErr: true,
			errText: "scheme must be http or https",
		},
		{
			name:    "target url without host",
			modify:  func(c *LoadConfig) { c.TargetUrl = "http:///publish" },
			wantErr: true,
			errText: "host must not be empty",
		},
		{
			name:    "zero virtual users",
			modify:  func(c *LoadConfig) { c.VirtualUsers = 0 },
			wantErr: true,
			errText: `"virtualUsers"`,
		},
		{
			name:    "zero duration",
			modify:  func(c *LoadConfig) { c.Duration = 0 },
			wantErr: true,
			errText: `"duration"`,
		},
		{
			name:    "zero batch size",
			modify:  func(c *LoadConfig) { c.BatchSize = 0 },
			wantErr: true,
			errText: `"batchSize"`,
		},
		{
			name:    "probability above one",
			modify:  func(c *LoadConfig) { c.PoolHitProbability = 1.5 },
			wantErr: true,
			errText: "must be between 0 and 1",
		},
		{
			name:    "zero request timeout",
			modify:  func(c *LoadConfig) { c.RequestTimeout = 0 },
			wantErr: true,
			errText: `"requestTimeout"`,
		},
		{
			name:    "negative pace delay",
			modify:  func(c *LoadConfig) { c.PaceDelay = -time.Millisecond },
			wantErr: true,
			errText: `"paceDelay"`,
		},
		{
			name:    "empty source",
			modify:  func(c *LoadConfig) { c.Source = " " },
			wantErr: true,
			errText: `"source"`,
		},
		{
			name:    "no topics",
			modify:  func(c *LoadConfig) { c.Topics = nil },
			wantErr: true,
			errText: "at least one topic is required",
		},
		{
			name:    "duplicate topic",
			modify:  func(c *LoadConfig) { c.Topics = []string{"auth", "auth"} },
			wantErr: true,
			errText: "topic auth is listed twice",
		},
		{
			name:    "unknown report format",
			modify:  func(c *LoadConfig) { c.ReportFormat = "csv" },
			wantErr: true,
			errText: "must be json or yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Default()
			tt.modify(&config)
			err := config.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errText)
				assert.True(t, publoaderrors.IsInvalidArgument(err))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_ValidateReportsEveryError(t *testing.T) {
	config := Default()
	config.PoolSize = 0
	config.VirtualUsers = 0
	config.TargetUrl = "ftp://example.com"

	err := config.Validate()
	require.Error(t, err)

	merr, ok := err.(*multierror.Error)
	require.True(t, ok)
	assert.Len(t, merr.Errors, 3)
}

func TestLoad_Defaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	config, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, Default(), config)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv(TargetUrlEnv, "http://ingest:9000/publish")
	t.Setenv("PUBLOAD_VIRTUALUSERS", "7")
	t.Setenv("PUBLOAD_DURATION", "90s")
	t.Setenv("PUBLOAD_POOLHITPROBABILITY", "0.5")
	t.Setenv("PUBLOAD_TOPICS", "auth, billing ,")

	v := viper.New()
	SetDefaults(v)
	require.NoError(t, BindEnv(v))

	config, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "http://ingest:9000/publish", config.TargetUrl)
	assert.Equal(t, 7, config.VirtualUsers)
	assert.Equal(t, 90*time.Second, config.Duration)
	assert.Equal(t, 0.5, config.PoolHitProbability)
	assert.Equal(t, []string{"auth", "billing"}, config.Topics)
	assert.Equal(t, DefaultBatchSize, config.BatchSize)
}

func TestLoad_FromYaml(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(`
targetUrl: https://ingest.example.com/publish
batchSize: 10
paceDelay: 250ms
requestTimeout: 2s
topics: [orders]
reportFormat: yaml
metricsPort: 9090
`)))

	config, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "https://ingest.example.com/publish", config.TargetUrl)
	assert.Equal(t, 10, config.BatchSize)
	assert.Equal(t, 250*time.Millisecond, config.PaceDelay)
	assert.Equal(t, 2*time.Second, config.RequestTimeout)
	assert.Equal(t, []string{"orders"}, config.Topics)
	assert.Equal(t, ReportFormatYaml, config.ReportFormat)
	assert.Equal(t, uint16(9090), config.MetricsPort)
	require.NoError(t, config.Validate())
}

func TestSinkConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultSink().Validate())

	err := SinkConfig{RecentEvents: -1}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"port"`)
	assert.Contains(t, err.Error(), `"dedupTtl"`)
	assert.Contains(t, err.Error(), `"recentEvents"`)
	assert.True(t, publoaderrors.IsInvalidArgument(err))
}

func TestLoadSink(t *testing.T) {
	v := viper.New()
	SetSinkDefaults(v)
	config, err := LoadSink(v)
	require.NoError(t, err)
	assert.Equal(t, DefaultSink(), config)

	v.Set("port", "9000")
	v.Set("dedupTtl", "10m")
	config, err = LoadSink(v)
	require.NoError(t, err)
	assert.Equal(t, SinkConfig{Port: 9000, DedupTtl: 10 * time.Minute, RecentEvents: DefaultSinkRecentEvents}, config)
}
