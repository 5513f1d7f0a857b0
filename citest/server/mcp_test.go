package server_test

import (
	"encoding/json"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cyrup-ai/kodegen-tools-config/citest/testutil"
)

var _ = Describe("MCP over streamable HTTP", func() {
	var session *sdkmcp.ClientSession
	var clientName string

	BeforeEach(func() {
		clientName = "mcp-" + testutil.RandomString(8)
		mcpClient := sdkmcp.NewClient(&sdkmcp.Implementation{Name: clientName, Version: "3.1.4"}, nil)

		var err error
		session, err = mcpClient.Connect(ctx, &sdkmcp.StreamableClientTransport{Endpoint: testServer.BaseURL + "/mcp"}, nil)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = session.Close() })
	})

	It("should record the connecting client", func() {
		Eventually(func() []string {
			history, err := client.GetClientHistory(ctx)
			if err != nil {
				return nil
			}
			names := []string{}
			for _, h := range history {
				names = append(names, h.Name)
			}
			return names
		}).Should(ContainElement(clientName))
	})

	It("should list both config tools", func() {
		result, err := session.ListTools(ctx, &sdkmcp.ListToolsParams{})
		Expect(err).NotTo(HaveOccurred())

		names := []string{}
		for _, t := range result.Tools {
			names = append(names, t.Name)
		}
		Expect(names).To(ConsistOf("config_get", "config_set"))
	})

	It("should update a value through config_set visible over HTTP", func() {
		result, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
			Name:      "config_set",
			Arguments: map[string]any{"key": "default_shell", "value": "/bin/sh"},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.IsError).To(BeFalse())

		value, err := client.GetValue(ctx, "default_shell")
		Expect(err).NotTo(HaveOccurred())
		Expect(value.Value).To(Equal("/bin/sh"))
	})

	It("should return a tool error for invalid values", func() {
		result, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
			Name:      "config_set",
			Arguments: map[string]any{"key": "file_read_line_limit", "value": -1},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.IsError).To(BeTrue())

		text, ok := result.Content[0].(*sdkmcp.TextContent)
		Expect(ok).To(BeTrue())
		Expect(text.Text).To(ContainSubstring("must be positive"))
	})

	It("should return the configuration from config_get", func() {
		result, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: "config_get", Arguments: map[string]any{}})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Content).To(HaveLen(2))

		text, ok := result.Content[1].(*sdkmcp.TextContent)
		Expect(ok).To(BeTrue())

		var body struct {
			Success bool           `json:"success"`
			Config  map[string]any `json:"config"`
		}
		Expect(json.Unmarshal([]byte(text.Text), &body)).To(Succeed())
		Expect(body.Success).To(BeTrue())
		Expect(body.Config).To(HaveKey("blocked_commands"))
	})
})
