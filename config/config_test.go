/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromFile(t *testing.T) {
	f, err := os.CreateTemp("", "hookguard*.json")
	require.NoError(t, err)
	defer os.Remove(f.Name())

	_, err = f.WriteString(`{
		"project_name": "hookguard test",
		"data_source": {"dns": "postgres://localhost/hookguard"},
		"redis": {"dns": "localhost:6379"},
		"services": {
			"stripe": {"secret": "whsec_test", "tolerance_seconds": 300},
			"github": {"secret": "gh_test"}
		},
		"retry": {"enabled": true, "max_attempts": 5, "delays_seconds": [10, 30]},
		"alerting": {"enabled": true, "failure_threshold": 4}
	}`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	err = loadConfigFromFile(f.Name())
	require.NoError(t, err)

	cnf, err := Fetch()
	require.NoError(t, err)

	assert.Equal(t, "hookguard test", cnf.ProjectName)
	assert.Equal(t, DEFAULT_PORT, cnf.Server.Port)

	svc, ok := cnf.Service("stripe")
	assert.True(t, ok)
	assert.Equal(t, "whsec_test", svc.Secret)
	assert.Equal(t, int64(300), svc.ToleranceSeconds)

	gh, ok := cnf.Service("github")
	assert.True(t, ok)
	assert.Zero(t, gh.ToleranceSeconds)

	_, ok = cnf.Service("unknown")
	assert.False(t, ok)

	assert.True(t, cnf.Retry.Enabled)
	assert.Equal(t, 5, cnf.Retry.MaxAttempts)
	assert.Equal(t, []int64{10, 30}, cnf.Retry.DelaysSeconds)

	assert.Equal(t, 4, cnf.Alerting.FailureThreshold)
	assert.Equal(t, 30, cnf.Alerting.WindowMinutes)
	assert.Equal(t, 30, cnf.Alerting.CooldownMinutes)
	assert.Equal(t, "webhook_retry", cnf.Queue.RetryQueue)
}

func TestValidateAndAddDefaults(t *testing.T) {
	cnf := &Configuration{
		DataSource: DataSourceConfig{Dns: "postgres://localhost/hookguard"},
		Redis:      RedisConfig{Dns: "localhost:6379"},
	}
	err := cnf.validateAndAddDefaults()
	assert.NoError(t, err)
	assert.Equal(t, "Hookguard Server", cnf.ProjectName)
	assert.Equal(t, 3, cnf.Retry.MaxAttempts)
	assert.Equal(t, []int64{60, 300, 900}, cnf.Retry.DelaysSeconds)
	assert.Equal(t, 3, cnf.Alerting.FailureThreshold)
}

func TestValidateRequiredFields(t *testing.T) {
	cnf := &Configuration{}
	err := cnf.validateAndAddDefaults()
	assert.Error(t, err)

	cnf = &Configuration{DataSource: DataSourceConfig{Dns: "postgres://localhost/hookguard"}}
	err = cnf.validateAndAddDefaults()
	assert.Error(t, err)
}
