package linear_test

import (
	"context"
	"io"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jimmyghelani-usm/mcp-bridge/internal/toolserver"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/tools/linear"
	"github.com/jimmyghelani-usm/mcp-bridge/pkg/config"
	"github.com/jimmyghelani-usm/mcp-bridge/testing/mcptesting"
)

var _ = Describe("NewFallbackFromConfig", func() {
	var cfg *config.ServerConfig

	BeforeEach(func() {
		cfg = config.DefaultConfig()
		cfg.Linear.APIKey = ""
	})

	It("should return nil when the fallback is disabled", func() {
		cfg.Linear.Fallback = false
		Expect(linear.NewFallbackFromConfig(cfg, nil, mcptesting.DiscardLogger())).To(BeNil())
	})

	It("should report a missing API key once the MCP server fails", func() {
		cfg.Linear.Fallback = true
		caller := mcptesting.NewMockCaller()
		caller.Fail(toolserver.Linear, linear.ToolGetIssue, io.EOF)

		client := linear.NewClientFromConfig(cfg, caller, nil, mcptesting.DiscardLogger())
		Expect(client.HasFallback()).To(BeTrue())

		_, err := client.GetIssue(context.Background(), "ENG-1")
		Expect(err).To(MatchError(linear.ErrNoAPIKey))
	})
})
