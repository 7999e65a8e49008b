/*
Package health implements the three health check strategies a node
agent's HealthMonitor runs against discovered containers: HTTP, TCP, and
Exec. A failing check, once it crosses the configured retry threshold,
is reported to the error bus rather than acted on directly — this
package only answers "is it healthy", it doesn't decide what to do
about it.

# Checker Interface

	type Checker interface {
		Check(ctx context.Context) Result
		Type() CheckType
	}

HTTPChecker, TCPChecker, and ExecChecker each implement this with a
fluent With* builder for optional settings (method, headers, status
range, timeout, container target).

# Status and Hysteresis

Status.Update(result, config) tracks ConsecutiveFailures/
ConsecutiveSuccesses and only flips Healthy after Config.Retries
consecutive failures (or one success, to recover) — this prevents a
single transient failure from being treated as a real outage.

	status := health.NewStatus()
	config := health.DefaultConfig()
	result := checker.Check(ctx)
	status.Update(result, config)
	if !status.Healthy {
		// report it
	}

Config.StartPeriod gives a newly-started container a grace window
(Status.InStartPeriod) before checks start counting against it.

# Usage

	checker := health.NewHTTPChecker("http://10.0.0.5:8080/health").
		WithStatusRange(200, 299).
		WithTimeout(5 * time.Second)

	checker := health.NewTCPChecker("10.0.0.5:6379")

	checker := health.NewExecChecker([]string{"pg_isready", "-U", "postgres"}).
		WithContainer(containerID)

# Integration

pkg/nodeagent's HealthMonitor builds a Checker per container from the
container's Config map (see buildChecker), runs it on a goroutine per
container at Config.Interval, and reports a healthy-to-unhealthy
transition through an errorbus.Reporter.
*/
package health
