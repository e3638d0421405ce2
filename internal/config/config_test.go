package config

import (
	"reflect"
	"testing"
	"time"
)

func expectPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s should have panicked", name)
		}
	}()
	fn()
}

// baseEnv sets the only required variable and isolates the data dir.
func baseEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("BOOKMARKER_ORIGIN_URL", "https://app.domain.ext")
	t.Setenv("BOOKMARKER_DATA_DIR", dir)
	return dir
}

func TestRequireEnv(t *testing.T) {
	t.Setenv("BOOKMARKER_TEST_SET", "value")
	if got := requireEnv("BOOKMARKER_TEST_SET"); got != "value" {
		t.Errorf("requireEnv() = %q, want value", got)
	}
	t.Setenv("BOOKMARKER_TEST_EMPTY", "")
	expectPanic(t, "requireEnv(empty)", func() { requireEnv("BOOKMARKER_TEST_EMPTY") })
}

func TestMustURL(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		wantHost  string
		wantPanic bool
	}{
		{name: "https origin", value: "https://app.domain.ext", wantHost: "app.domain.ext"},
		{name: "http origin with port", value: "http://127.0.0.1:3000", wantHost: "127.0.0.1:3000"},
		{name: "missing scheme", value: "app.domain.ext", wantPanic: true},
		{name: "unsupported scheme", value: "ftp://app.domain.ext", wantPanic: true},
		{name: "missing variable", value: "", wantPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_ORIGIN_URL", tt.value)
			if tt.wantPanic {
				expectPanic(t, "mustURL()", func() { mustURL("TEST_ORIGIN_URL") })
				return
			}
			if u := mustURL("TEST_ORIGIN_URL"); u.Host != tt.wantHost {
				t.Errorf("mustURL() host = %v, want %v", u.Host, tt.wantHost)
			}
		})
	}
}

func TestMustCIDRs(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		want      []string
		wantPanic bool
	}{
		{name: "unset", value: "", want: nil},
		{name: "ips and prefixes", value: "10.0.0.0/8, 127.0.0.1 ,::1", want: []string{"10.0.0.0/8", "127.0.0.1", "::1"}},
		{name: "hostname rejected", value: "10.0.0.0/8,localhost", wantPanic: true},
		{name: "bad prefix rejected", value: "10.0.0.0/33", wantPanic: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_CIDRS", tt.value)
			if tt.wantPanic {
				expectPanic(t, "mustCIDRs()", func() { mustCIDRs("TEST_CIDRS") })
				return
			}
			if got := mustCIDRs("TEST_CIDRS"); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("mustCIDRs() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSplitAndTrim(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  []string
	}{
		{name: "empty", value: "", want: nil},
		{name: "single value", value: "value1", want: []string{"value1"}},
		{name: "spaces and quotes", value: ` "value1", 'value2' ,value3 `, want: []string{"value1", "value2", "value3"}},
		{name: "empty parts dropped", value: "a,,b, ", want: []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := splitAndTrim(tt.value); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitAndTrim() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestScalarHelpersFallBackToDefault(t *testing.T) {
	t.Setenv("TEST_DURATION", "5s")
	t.Setenv("TEST_DURATION_BAD", "soon")
	t.Setenv("TEST_BOOL", "false")
	t.Setenv("TEST_BOOL_BAD", "maybe")
	t.Setenv("TEST_INT", "42")
	t.Setenv("TEST_INT_BAD", "forty-two")

	if got := mustDuration("TEST_DURATION", time.Second); got != 5*time.Second {
		t.Errorf("mustDuration() = %v, want 5s", got)
	}
	if got := mustDuration("TEST_DURATION_BAD", time.Second); got != time.Second {
		t.Errorf("mustDuration(invalid) = %v, want default", got)
	}
	if got := mustDuration("TEST_DURATION_UNSET", 2*time.Second); got != 2*time.Second {
		t.Errorf("mustDuration(unset) = %v, want default", got)
	}
	if got := mustBool("TEST_BOOL", true); got {
		t.Error("mustBool() = true, want false")
	}
	if got := mustBool("TEST_BOOL_BAD", true); !got {
		t.Error("mustBool(invalid) should keep the default")
	}
	if got := getenvInt("TEST_INT", 1); got != 42 {
		t.Errorf("getenvInt() = %d, want 42", got)
	}
	if got := getenvInt("TEST_INT_BAD", 7); got != 7 {
		t.Errorf("getenvInt(invalid) = %d, want default", got)
	}
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		dir := baseEnv(t)

		cfg := Load()
		if cfg.DBName != "bookmarks.db" {
			t.Errorf("DBName = %v, want bookmarks.db", cfg.DBName)
		}
		if cfg.RPCTimeout != 30*time.Second || cfg.FetchTimeout != 10*time.Second {
			t.Errorf("timeouts = %v/%v, want 30s/10s", cfg.RPCTimeout, cfg.FetchTimeout)
		}
		if cfg.InitRetries != 5 {
			t.Errorf("InitRetries = %d, want 5", cfg.InitRetries)
		}
		if cfg.RedisEnabled() {
			t.Error("RedisEnabled() = true without an address")
		}
		if cfg.SettingsDir != dir {
			t.Errorf("SettingsDir = %v, want the data dir", cfg.SettingsDir)
		}
		if cfg.OriginURL.Host != "app.domain.ext" {
			t.Errorf("OriginURL = %v", cfg.OriginURL)
		}
	})

	t.Run("overrides", func(t *testing.T) {
		baseEnv(t)
		t.Setenv("BOOKMARKER_DISABLE_FILESYSTEM", "true")
		t.Setenv("BOOKMARKER_REDIS_ADDR", "redis:6379")
		t.Setenv("BOOKMARKER_REDIS_POOL_SIZE", "4")
		t.Setenv("BOOKMARKER_CORS_ORIGINS", "https://ui.domain.ext, https://m.domain.ext")
		t.Setenv("BOOKMARKER_ALLOWED_CIDRS", "192.168.0.0/16")

		cfg := Load()
		if !cfg.DisableFilesystem || !cfg.RedisEnabled() || cfg.RedisPoolSize != 4 {
			t.Errorf("storage overrides not applied: %+v", cfg)
		}
		if want := []string{"https://ui.domain.ext", "https://m.domain.ext"}; !reflect.DeepEqual(cfg.CORSOrigins, want) {
			t.Errorf("CORSOrigins = %v, want %v", cfg.CORSOrigins, want)
		}
		if !reflect.DeepEqual(cfg.AllowedCIDRS, []string{"192.168.0.0/16"}) {
			t.Errorf("AllowedCIDRS = %v", cfg.AllowedCIDRS)
		}
	})

	t.Run("relative data dir is made absolute", func(t *testing.T) {
		baseEnv(t)
		t.Setenv("BOOKMARKER_DATA_DIR", "data")
		if cfg := Load(); cfg.DataDir == "data" || cfg.DataDir[0] != '/' {
			t.Errorf("DataDir = %q, want absolute", cfg.DataDir)
		}
	})

	t.Run("missing origin panics", func(t *testing.T) {
		baseEnv(t)
		t.Setenv("BOOKMARKER_ORIGIN_URL", "")
		expectPanic(t, "Load()", func() { Load() })
	})

	t.Run("redis password required", func(t *testing.T) {
		baseEnv(t)
		t.Setenv("BOOKMARKER_REDIS_ADDR", "localhost:6379")
		t.Setenv("BOOKMARKER_REDIS_PASSWORD_REQUIRED", "true")
		t.Setenv("BOOKMARKER_REDIS_PASSWORD", "")
		expectPanic(t, "Load()", func() { Load() })
	})
}
