package metrics

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/coder/quartz"

	"github.com/safing/seedcache/config"
	"github.com/safing/seedcache/log"
)

const pushInterval = 10 * time.Second

var clock quartz.Clock = quartz.NewReal()

func writeMetricsTo(ctx context.Context, url string) error {
	// First, collect metrics into buffer.
	buf := &bytes.Buffer{}
	WriteMetrics(buf, config.ExpertiseLevelDeveloper)

	// Check if there is something to send.
	if buf.Len() == 0 {
		log.Debugf("metrics: not pushing metrics, nothing to send")
		return nil
	}

	// Create request
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, buf)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	// Send.
	client := &http.Client{
		Timeout: 10 * time.Second,
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// Check return status.
	switch resp.StatusCode {
	case http.StatusOK,
		http.StatusAccepted,
		http.StatusNoContent:
		return nil
	default:
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf(
			"got %s while writing metrics to %s: %s",
			resp.Status,
			url,
			body,
		)
	}
}

func metricsWriter(ctx context.Context) error {
	return pushMetrics(ctx, pushOption(), pushInterval)
}

func pushMetrics(ctx context.Context, pushURL string, interval time.Duration) error {
	ticker := clock.NewTicker(interval, "metrics", "push")
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			err := writeMetricsTo(ctx, pushURL)
			if err != nil {
				return err
			}
		}
	}
}
