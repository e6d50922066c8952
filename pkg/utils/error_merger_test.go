package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, merged chan error) []string {
	t.Helper()
	var got []string
	timeout := time.After(time.Second)
	for {
		select {
		case err, ok := <-merged:
			if !ok {
				return got
			}
			got = append(got, err.Error())
		case <-timeout:
			t.Fatal("timeout waiting for merged channel to close")
		}
	}
}

func TestMergeErrorChans(t *testing.T) {
	httpErrs := make(chan error, 1)
	metricsErrs := make(chan error, 1)

	merged := MergeErrorChans(httpErrs, metricsErrs)

	httpErrs <- errors.New("http listener")
	metricsErrs <- errors.New("metrics listener")
	close(httpErrs)
	close(metricsErrs)

	assert.ElementsMatch(t, []string{"http listener", "metrics listener"}, collect(t, merged))
}

func TestMergeErrorChansSkipsNil(t *testing.T) {
	only := make(chan error)
	merged := MergeErrorChans(nil, only, nil)
	close(only)

	require.Empty(t, collect(t, merged))
}

func TestMergeErrorChansNoInputs(t *testing.T) {
	assert.Empty(t, collect(t, MergeErrorChans()))
}
