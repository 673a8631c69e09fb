// Package worker answers rule evaluation requests arriving on a Redis stream.
//
// Each stream entry carries a JSON request in its "data" field:
//
//	{"request_id": "r-1", "rule_name": "rule1", "data": {"age": 35}}
//
// The worker evaluates the named rule and appends a result to the result stream:
//
//	{"id": "...", "request_id": "r-1", "rule_name": "rule1", "result": true, "timestamp": "..."}
//
// Failed evaluations carry an "error" field and a false result. Entries are read
// through a consumer group, so several workers can share one stream.
//
// Example usage:
//
//	w := worker.NewWorker(cfg, redisClient, eng, logger)
//	if err := w.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Stop(ctx)
package worker
