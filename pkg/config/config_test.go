package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jimmyghelani-usm/mcp-bridge/pkg/config"
)

func writeConfig(content string) string {
	dir := GinkgoT().TempDir()
	path := filepath.Join(dir, "config.yaml")
	Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())
	return path
}

func setEnv(key, value string) {
	prev, had := os.LookupEnv(key)
	Expect(os.Setenv(key, value)).To(Succeed())
	DeferCleanup(func() {
		if had {
			_ = os.Setenv(key, prev)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

var _ = Describe("LoadConfigFrom", func() {
	It("returns the defaults for an empty file", func() {
		cfg, err := config.LoadConfigFrom(writeConfig("{}\n"))
		Expect(err).NotTo(HaveOccurred())

		def := config.DefaultConfig()
		Expect(cfg.Transport.Type).To(Equal("stdio"))
		Expect(cfg.Timeout).To(Equal(def.Timeout))
		Expect(cfg.Fallback.Markers).To(ConsistOf("ETIMEDOUT", "Connection closed", "MCP_TIMEOUT"))
		Expect(cfg.Linear.GraphQL.BaseURL).To(Equal("https://api.linear.app/graphql"))
	})

	It("reads nested values from YAML", func() {
		cfg, err := config.LoadConfigFrom(writeConfig(`
log_level: debug
timeout: 5s
transport:
  type: http
  port: 9090
cache:
  enabled: false
security:
  blocked_tools: ["browser_evaluate"]
  read_only: true
linear:
  graphql:
    retry:
      max_attempts: 1
`))
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.LogLevel).To(Equal("debug"))
		Expect(cfg.Timeout).To(Equal(5 * time.Second))
		Expect(cfg.Transport.Type).To(Equal("http"))
		Expect(cfg.Transport.Port).To(Equal(9090))
		Expect(cfg.Cache.Enabled).To(BeFalse())
		Expect(cfg.Security.BlockedTools).To(Equal([]string{"browser_evaluate"}))
		Expect(cfg.Security.ReadOnly).To(BeTrue())
		Expect(cfg.Linear.GraphQL.Retry.MaxAttempts).To(Equal(1))
	})

	It("lets environment variables override the file", func() {
		setEnv("MCP_BRIDGE_LOG_FORMAT", "text")
		setEnv("LINEAR_API_KEY", "lin_api_from_env")

		cfg, err := config.LoadConfigFrom(writeConfig("log_format: json\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.LogFormat).To(Equal("text"))
		Expect(cfg.Linear.APIKey).To(Equal("lin_api_from_env"))
	})

	DescribeTable("rejects invalid values",
		func(content, message string) {
			_, err := config.LoadConfigFrom(writeConfig(content))
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring(message))
		},
		Entry("transport", "transport:\n  type: carrier-pigeon\n", "unknown transport type"),
		Entry("log level", "log_level: loud\n", "invalid log level"),
		Entry("log format", "log_format: xml\n", "invalid log format"),
		Entry("timeout", "timeout: 0s\n", "timeout must be positive"),
		Entry("threshold", "screenshots:\n  threshold: 2\n", "threshold"),
		Entry("retry", "linear:\n  graphql:\n    retry:\n      max_attempts: 0\n", "max_attempts"),
	)

	It("fails on an unreadable explicit file", func() {
		_, err := config.LoadConfigFrom(filepath.Join(GinkgoT().TempDir(), "missing.yaml"))
		Expect(err).To(HaveOccurred())
	})
})
