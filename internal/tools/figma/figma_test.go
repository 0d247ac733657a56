package figma_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jimmyghelani-usm/mcp-bridge/internal/mcpclient"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/toolserver"
	"github.com/jimmyghelani-usm/mcp-bridge/internal/tools/figma"
	"github.com/jimmyghelani-usm/mcp-bridge/testing/mcptesting"
)

var _ = Describe("Client", func() {
	var (
		ctx    context.Context
		caller *mcptesting.MockCaller
		client *figma.Client
	)

	BeforeEach(func() {
		ctx = context.Background()
		caller = mcptesting.NewMockCaller()
		client = figma.NewDesktop(caller)
	})

	It("should target the desktop and remote servers", func() {
		Expect(client.Server()).To(Equal(toolserver.FigmaDesktop))
		Expect(figma.NewRemote(caller).Server()).To(Equal(toolserver.FigmaRemote))
	})

	Describe("GetDesignContext", func() {
		It("should forward the named fields and return the code", func() {
			caller.Reply(toolserver.FigmaDesktop, figma.ToolGetDesignContext, mcptesting.TextResult("<div className=\"p-4\"/>"))

			code, err := client.GetDesignContext(ctx, figma.GetDesignContextParams{
				NodeParams: figma.NodeParams{NodeID: "1:2", ClientFrameworks: "react"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(code).To(Equal("<div className=\"p-4\"/>"))

			call := caller.LastCall()
			Expect(call.Tool).To(Equal("get_design_context"))
			Expect(call.Args).To(Equal(map[string]any{"nodeId": "1:2", "clientFrameworks": "react"}))
		})

		It("should fail when the reply carries an Error: message", func() {
			caller.Reply(toolserver.FigmaDesktop, figma.ToolGetDesignContext, mcptesting.TextResult("Error: nothing selected"))

			_, err := client.GetDesignContext(ctx, figma.GetDesignContextParams{})
			Expect(mcpclient.IsToolError(err)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("nothing selected"))
		})

		It("should propagate call errors unchanged", func() {
			caller.Fail(toolserver.FigmaDesktop, figma.ToolGetDesignContext, errors.New("Connection closed"))
			_, err := client.GetDesignContext(ctx, figma.GetDesignContextParams{})
			Expect(err).To(MatchError(ContainSubstring("Connection closed")))
		})
	})

	Describe("GetScreenshot", func() {
		It("should return the decoded image", func() {
			caller.Reply(toolserver.FigmaDesktop, figma.ToolGetScreenshot, mcptesting.ImageResult("image/png", []byte("png")))

			shot, err := client.GetScreenshot(ctx, figma.GetScreenshotParams{NodeID: "1:2"})
			Expect(err).NotTo(HaveOccurred())
			Expect(shot.MIMEType).To(Equal("image/png"))
			Expect(shot.Data).To(Equal([]byte("png")))
		})

		It("should apply the Error: guard", func() {
			caller.Reply(toolserver.FigmaDesktop, figma.ToolGetScreenshot, mcptesting.TextResult("Error: node not found"))
			_, err := client.GetScreenshot(ctx, figma.GetScreenshotParams{NodeID: "9:9"})
			Expect(mcpclient.IsToolError(err)).To(BeTrue())
		})

		It("should fail when no image came back", func() {
			caller.Reply(toolserver.FigmaDesktop, figma.ToolGetScreenshot, mcptesting.TextResult("ok"))
			_, err := client.GetScreenshot(ctx, figma.GetScreenshotParams{})
			Expect(err).To(MatchError(ContainSubstring("no image")))
		})
	})

	It("should decode variable definitions", func() {
		caller.Reply(toolserver.FigmaDesktop, figma.ToolGetVariableDefs, mcptesting.JSONResult(map[string]string{
			"color/primary": "#0055FF",
		}))
		defs, err := client.GetVariableDefs(ctx, figma.GetVariableDefsParams{NodeID: "1:2"})
		Expect(err).NotTo(HaveOccurred())
		Expect(defs).To(HaveKeyWithValue("color/primary", "#0055FF"))
	})

	It("should decode the code connect map", func() {
		caller.Reply(toolserver.FigmaDesktop, figma.ToolGetCodeConnectMap, mcptesting.JSONResult(map[string]any{
			"1:2": map[string]string{"codeConnectSrc": "src/Button.tsx", "codeConnectName": "Button"},
		}))
		m, err := client.GetCodeConnectMap(ctx, figma.GetCodeConnectMapParams{NodeID: "1:2"})
		Expect(err).NotTo(HaveOccurred())
		Expect(m["1:2"].CodeConnectName).To(Equal("Button"))
	})

	It("should return text tools verbatim", func() {
		caller.Reply(toolserver.FigmaDesktop, figma.ToolGetMetadata, mcptesting.TextResult("<frame id=\"1:2\"/>"))
		caller.Reply(toolserver.FigmaDesktop, figma.ToolCreateDesignSystemRules, mcptesting.TextResult("# Rules"))

		xml, err := client.GetMetadata(ctx, figma.GetMetadataParams{NodeID: "1:2"})
		Expect(err).NotTo(HaveOccurred())
		Expect(xml).To(HavePrefix("<frame"))

		rules, err := client.CreateDesignSystemRules(ctx, figma.CreateDesignSystemRulesParams{ClientLanguages: "typescript"})
		Expect(err).NotTo(HaveOccurred())
		Expect(rules).To(Equal("# Rules"))
	})

	It("should unwrap FigJam replies", func() {
		caller.Reply(toolserver.FigmaDesktop, figma.ToolGetFigJam, mcptesting.JSONResult(map[string]any{"stickies": 3}))
		v, err := client.GetFigJam(ctx, figma.GetFigJamParams{})
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(HaveKeyWithValue("stickies", BeNumerically("==", 3)))
	})
})

var _ = DescribeTable("NormalizeNodeID",
	func(in, want string) {
		Expect(figma.NormalizeNodeID(in)).To(Equal(want))
	},
	Entry("colon form", "1:2", "1:2"),
	Entry("dash form", "12-34", "12:34"),
	Entry("url", "https://www.figma.com/design/AbC123/Site?node-id=5-6&t=x", "5:6"),
)

var _ = DescribeTable("FileKeyFromURL",
	func(in, want string) {
		Expect(figma.FileKeyFromURL(in)).To(Equal(want))
	},
	Entry("design url", "https://www.figma.com/design/AbC123/Site?node-id=5-6", "AbC123"),
	Entry("file url", "https://www.figma.com/file/XyZ/Old", "XyZ"),
	Entry("not a figma url", "https://example.com", ""),
)
