package toolserver_test

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jimmyghelani-usm/mcp-bridge/internal/toolserver"
	"github.com/jimmyghelani-usm/mcp-bridge/pkg/config"
)

const sampleMCPJSON = `{
  "mcpServers": {
    "playwright": {
      "command": "node",
      "args": ["./node_modules/@playwright/mcp/cli.js", "--headless"]
    },
    "figma-remote": {
      "type": "http",
      "url": "https://mcp.figma.com/mcp",
      "headers": {"Authorization": "Bearer ${FIGMA_TEST_TOKEN}"},
      "timeout": "90s"
    },
    "notes": {
      "type": "sse",
      "url": "http://localhost:7000/sse",
      "env": {"LEVEL": "debug"}
    }
  }
}`

var _ = Describe("Registry", func() {
	var (
		registry *toolserver.Registry
		logger   *slog.Logger
	)

	BeforeEach(func() {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		var err error
		registry, err = toolserver.NewRegistryFromConfig(config.DefaultConfig(), nil, logger)
		Expect(err).NotTo(HaveOccurred())
	})

	It("ships the built-in servers", func() {
		Expect(registry.Names()).To(Equal([]string{"figma-desktop", "figma-remote", "linear", "playwright"}))

		desktop, err := registry.Lookup(toolserver.FigmaDesktop)
		Expect(err).NotTo(HaveOccurred())
		Expect(desktop.Transport).To(Equal(toolserver.TransportHTTP))
		Expect(desktop.URL).To(Equal("http://127.0.0.1:3845/mcp"))

		linear, err := registry.Lookup(toolserver.Linear)
		Expect(err).NotTo(HaveOccurred())
		Expect(linear.Transport).To(Equal(toolserver.TransportStdio))
		Expect(linear.Args).To(ContainElement("mcp-remote"))
	})

	It("reports unknown servers with a typed error", func() {
		_, err := registry.Lookup("slack")
		Expect(err).To(HaveOccurred())
		Expect(toolserver.IsServerNotFound(err)).To(BeTrue())

		var nf *toolserver.ServerNotFoundError
		Expect(err).To(BeAssignableToTypeOf(nf))
		Expect(err.Error()).To(ContainSubstring("playwright"))
	})

	It("merges .mcp.json entries over the defaults", func() {
		Expect(registry.Load(strings.NewReader(sampleMCPJSON))).To(Succeed())

		pw, err := registry.Lookup(toolserver.Playwright)
		Expect(err).NotTo(HaveOccurred())
		Expect(pw.Command).To(Equal("node"))
		Expect(pw.Transport).To(Equal(toolserver.TransportStdio))

		remote, err := registry.Lookup(toolserver.FigmaRemote)
		Expect(err).NotTo(HaveOccurred())
		Expect(remote.Timeout.String()).To(Equal("1m30s"))

		notes, err := registry.Lookup("notes")
		Expect(err).NotTo(HaveOccurred())
		Expect(notes.Transport).To(Equal(toolserver.TransportSSE))
		Expect(notes.EnvList()).To(Equal([]string{"LEVEL=debug"}))
	})

	It("expands ${VAR} references in headers", func() {
		Expect(os.Setenv("FIGMA_TEST_TOKEN", "figd_abc")).To(Succeed())
		DeferCleanup(os.Unsetenv, "FIGMA_TEST_TOKEN")

		Expect(registry.Load(strings.NewReader(sampleMCPJSON))).To(Succeed())
		remote, _ := registry.Lookup(toolserver.FigmaRemote)
		Expect(remote.ExpandedHeaders()).To(HaveKeyWithValue("Authorization", "Bearer figd_abc"))
	})

	It("drops servers marked disabled", func() {
		Expect(registry.Has(toolserver.Linear)).To(BeTrue())
		doc := `{"mcpServers": {"linear": {"disabled": true}}}`
		Expect(registry.Load(strings.NewReader(doc))).To(Succeed())
		Expect(registry.Has(toolserver.Linear)).To(BeFalse())
		Expect(registry.Remove(toolserver.Linear)).To(BeFalse())
	})

	It("ignores a missing file but rejects a malformed one", func() {
		dir := GinkgoT().TempDir()
		Expect(registry.LoadFile(filepath.Join(dir, "absent.json"))).To(Succeed())

		bad := filepath.Join(dir, "bad.json")
		Expect(os.WriteFile(bad, []byte("{not json"), 0o600)).To(Succeed())
		Expect(registry.LoadFile(bad)).To(MatchError(ContainSubstring("invalid .mcp.json")))
	})

	DescribeTable("validates entries",
		func(cfg toolserver.ServerConfig, message string) {
			err := registry.Register(cfg)
			Expect(err).To(MatchError(ContainSubstring(message)))
		},
		Entry("stdio without command", toolserver.ServerConfig{Name: "x", Transport: toolserver.TransportStdio}, "requires a command"),
		Entry("http without url", toolserver.ServerConfig{Name: "x", Transport: toolserver.TransportHTTP}, "requires a url"),
		Entry("unknown transport", toolserver.ServerConfig{Name: "x", Transport: "carrier"}, "unknown transport"),
		Entry("no name", toolserver.ServerConfig{Transport: toolserver.TransportHTTP, URL: "http://x"}, "name cannot be empty"),
	)

	It("writes a document that loads back to the same servers", func() {
		var buf bytes.Buffer
		Expect(registry.WriteMCPJSON(&buf)).To(Succeed())
		Expect(buf.String()).To(ContainSubstring(`"mcpServers"`))

		again, err := toolserver.NewRegistry()
		Expect(err).NotTo(HaveOccurred())
		Expect(again.Load(&buf)).To(Succeed())
		Expect(again.Names()).To(Equal(registry.Names()))
	})

	It("adds a bearer header to figma-remote when a token is configured", func() {
		cfg := config.DefaultConfig()
		servers := toolserver.DefaultServers(cfg, "figd_token")
		var remote toolserver.ServerConfig
		for _, s := range servers {
			if s.Name == toolserver.FigmaRemote {
				remote = s
			}
		}
		Expect(remote.Headers).To(BeEmpty())
		Expect(remote.ExpandedHeaders()).To(HaveKeyWithValue("Authorization", "Bearer figd_token"))
	})

	It("never writes a stored Figma token", func() {
		withToken, err := toolserver.NewRegistry(toolserver.DefaultServers(config.DefaultConfig(), "figd_SUPERSECRET")...)
		Expect(err).NotTo(HaveOccurred())

		var buf bytes.Buffer
		Expect(withToken.WriteMCPJSON(&buf)).To(Succeed())
		Expect(buf.String()).NotTo(ContainSubstring("figd_SUPERSECRET"))
		Expect(buf.String()).To(ContainSubstring(`"Authorization": "Bearer ${FIGMA_TOKEN}"`))
	})

	It("drops a header whose variable is unset", func() {
		Expect(os.Unsetenv("FIGMA_TEST_TOKEN")).To(Succeed())
		Expect(registry.Load(strings.NewReader(sampleMCPJSON))).To(Succeed())
		remote, _ := registry.Lookup(toolserver.FigmaRemote)
		Expect(remote.ExpandedHeaders()).NotTo(HaveKey("Authorization"))
	})

	It("skips entries that launch the bridge itself", func() {
		doc := `{"mcpServers": {"mcp-bridge": {"command": "./build/mcp-bridge", "args": ["serve"]}}}`
		Expect(registry.Load(strings.NewReader(doc))).To(Succeed())
		Expect(registry.Has("mcp-bridge")).To(BeFalse())
	})

	Describe("reloading a file", func() {
		var path string

		write := func(doc string) {
			Expect(os.WriteFile(path, []byte(doc), 0o600)).To(Succeed())
		}

		BeforeEach(func() {
			path = filepath.Join(GinkgoT().TempDir(), ".mcp.json")
		})

		It("drops entries removed from the file and reports edits", func() {
			write(`{"mcpServers": {
				"notes": {"type": "sse", "url": "http://localhost:7000/sse"},
				"playwright": {"command": "node", "args": ["cli.js"]}
			}}`)
			changes, err := registry.ReloadFile(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(changes.Added).To(Equal([]string{"notes"}))
			Expect(changes.Updated).To(Equal([]string{"playwright"}))

			write(`{"mcpServers": {"playwright": {"command": "node", "args": ["cli.js", "--headless"]}}}`)
			changes, err = registry.ReloadFile(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(changes.Removed).To(Equal([]string{"notes"}))
			Expect(changes.Updated).To(Equal([]string{"playwright"}))
			Expect(registry.Has("notes")).To(BeFalse())

			pw, _ := registry.Lookup(toolserver.Playwright)
			Expect(pw.Args).To(ContainElement("--headless"))
		})

		It("restores a built-in server once its override is removed", func() {
			write(`{"mcpServers": {"linear": {"disabled": true}}}`)
			Expect(registry.LoadFile(path)).To(Succeed())
			Expect(registry.Has(toolserver.Linear)).To(BeFalse())

			Expect(os.Remove(path)).To(Succeed())
			changes, err := registry.ReloadFile(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(changes.Added).To(Equal([]string{toolserver.Linear}))
		})

		It("keeps the current servers when an entry is invalid", func() {
			write(`{"mcpServers": {"notes": {"type": "sse", "url": "http://localhost:7000/sse"}}}`)
			Expect(registry.LoadFile(path)).To(Succeed())

			write(`{"mcpServers": {"a": {"type": "stdio"}, "b": {"type": "sse", "url": "http://b/sse"}}}`)
			Expect(registry.LoadFile(path)).To(MatchError(ContainSubstring("requires a command")))
			Expect(registry.Has("notes")).To(BeTrue())
			Expect(registry.Has("b")).To(BeFalse())
		})

		It("notifies listeners only when something changed", func() {
			var seen []toolserver.Changes
			registry.OnChange(func(c toolserver.Changes) { seen = append(seen, c) })

			write(`{"mcpServers": {"notes": {"type": "sse", "url": "http://localhost:7000/sse"}}}`)
			Expect(registry.LoadFile(path)).To(Succeed())
			Expect(registry.LoadFile(path)).To(Succeed())

			Expect(seen).To(HaveLen(1))
			Expect(seen[0].Stale()).To(BeEmpty())
		})
	})
})
