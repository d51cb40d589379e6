/*
Package configuration defines the options of a pubload run and of the local sink.

Every option can be given as a command line flag, as an environment variable (PUBLOAD_ followed by
the upper-cased option name, plus TARGET_URL for the target) or in a YAML config file:

	targetUrl: http://localhost:8080/publish
	virtualUsers: 50
	duration: 20s
	batchSize: 50
	poolSize: 14000
	poolHitProbability: 0.30
	requestTimeout: 30s
	paceDelay: 100ms
	source: pubload
	topics: [auth, payment, orders]
	progressInterval: 5s
	reportFile: results/run.json
	reportFormat: json
	metricsPort: 9090
	maxErrorsToCollect: 10

The sink reads its options (port, dedupTtl, recentEvents) the same way into a SinkConfig.

LoadConfig.Validate reports every invalid option at once. Any validation error is fatal: the run
must not start.
*/
package configuration
