package emergency

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/beacon/internal/channel"
)

// Fanout dispatches one alert across every configured channel concurrently
// and aggregates the per-channel outcomes into a Report. Each send is bounded
// by its own timeout; a slow or failing channel never affects its siblings,
// and aggregation waits for every send to finish or time out before
// returning. Once dispatch starts, caller cancellation is not propagated to
// in-flight sends.
type Fanout struct {
	dispatch channel.Sender
	sms      channel.Sender
	email    channel.Sender
	timeout  time.Duration
	logger   log.Logger
	metrics  *Metrics
}

// NewFanout creates a fan-out over the three channel variants. Any sender may
// be nil; a nil sender is still recorded in reports as attempted-and-failed
// rather than silently skipped.
func NewFanout(dispatch, sms, email channel.Sender, timeout time.Duration, logger log.Logger, metrics *Metrics) *Fanout {
	if logger == nil {
		logger = log.Nop()
	}
	return &Fanout{
		dispatch: dispatch,
		sms:      sms,
		email:    email,
		timeout:  timeout,
		logger:   logger,
		metrics:  metrics,
	}
}

// task is one planned send: a sender plus its formatted message.
type task struct {
	kind   channel.Kind
	sender channel.Sender
	msg    channel.Message
}

// Dispatch fans the alert out to all channels and blocks until every outcome
// is in. The emergency-services channel is always first and is the only
// outcome that gates Report.Success.
func (f *Fanout) Dispatch(ctx context.Context, sub *Subject, rec *Record) *Report {
	tasks := f.plan(sub, rec)

	// Sends must survive caller cancellation; only the per-channel timeout
	// bounds them.
	sendCtx := context.WithoutCancel(ctx)

	start := time.Now()
	outcomes := make([]Outcome, len(tasks))

	var wg sync.WaitGroup
	for i, tk := range tasks {
		wg.Add(1)
		go func(i int, tk task) {
			defer wg.Done()
			outcomes[i] = f.send(sendCtx, tk)
		}(i, tk)
	}
	wg.Wait()

	report := &Report{
		Outcomes: outcomes,
		Success:  len(outcomes) > 0 && outcomes[0].Succeeded,
	}

	if f.metrics != nil {
		f.metrics.DispatchDuration.Observe(time.Since(start).Seconds())
		for _, o := range outcomes {
			outcome := "failed"
			if o.Succeeded {
				outcome = "ok"
			}
			f.metrics.ChannelOutcomes.WithLabelValues(string(o.Channel), outcome).Inc()
		}
	}

	f.logger.Info(ctx, "notification fan-out complete",
		"alert_id", rec.ID,
		"channels", len(outcomes),
		"dispatch_succeeded", report.Success,
		"duration", time.Since(start).Seconds(),
	)
	return report
}

// plan builds the ordered task list for one alert: dispatch first, then one
// SMS per contact, then the subject's confirmation SMS, then a confirmation
// email when the subject has an address.
func (f *Fanout) plan(sub *Subject, rec *Record) []task {
	tasks := []task{
		{kind: channel.KindEmergencyServices, sender: f.dispatch, msg: dispatchMessage(sub, rec)},
	}
	for _, c := range sub.Contacts {
		tasks = append(tasks, task{kind: channel.KindSMS, sender: f.sms, msg: contactMessage(sub, rec, c)})
	}
	tasks = append(tasks, task{kind: channel.KindSMS, sender: f.sms, msg: confirmationSMS(sub, rec)})
	if sub.Email != "" {
		tasks = append(tasks, task{kind: channel.KindEmail, sender: f.email, msg: confirmationEmail(sub, rec)})
	}
	return tasks
}

// send runs one channel send under the per-channel timeout and translates the
// result into an Outcome. It never returns an error; channel failures are
// data here.
func (f *Fanout) send(ctx context.Context, tk task) Outcome {
	out := Outcome{
		Channel:     tk.kind,
		Destination: tk.msg.Destination,
		Attempted:   true,
	}

	if tk.sender == nil {
		out.Error = "channel not configured"
		return out
	}

	cctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- tk.sender.Send(cctx, tk.msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			out.Error = err.Error()
			f.logger.Warn(ctx, "channel send failed",
				"channel", tk.kind, "destination", tk.msg.Destination, "error", err)
			return out
		}
		out.Succeeded = true
		return out
	case <-cctx.Done():
		out.Error = fmt.Sprintf("timed out after %s", f.timeout)
		f.logger.Warn(ctx, "channel send timed out",
			"channel", tk.kind, "destination", tk.msg.Destination, "timeout", f.timeout.String())
		return out
	}
}
