package entity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCrawlerConfig_Validate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     CrawlerConfig
		wantErr bool
	}{
		{"valid", CrawlerConfig{IntervalMinutes: 15, TimeoutSeconds: 30}, false},
		{"zero interval", CrawlerConfig{IntervalMinutes: 0, TimeoutSeconds: 30}, true},
		{"negative interval", CrawlerConfig{IntervalMinutes: -1, TimeoutSeconds: 30}, true},
		{"zero timeout", CrawlerConfig{IntervalMinutes: 15, TimeoutSeconds: 0}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTruncateErrorLog(t *testing.T) {
	short := "boom"
	assert.Equal(t, short, TruncateErrorLog(short))

	long := strings.Repeat("x", maxErrorLogBytes+100)
	truncated := TruncateErrorLog(long)
	assert.Len(t, truncated, maxErrorLogBytes)
}
