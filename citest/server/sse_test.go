package server_test

import (
	"context"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cyrup-ai/kodegen-tools-config/citest/testutil"
)

var _ = Describe("SSE Event Streaming", func() {
	var sseClient *testutil.SSEClient

	BeforeEach(func() {
		sseClient = testServer.SSEClient()
		Expect(sseClient.Connect(ctx, "/event")).To(Succeed())
		DeferCleanup(sseClient.Close)

		_, err := sseClient.WaitForEvent("server.connected", 5*time.Second)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("GET /event", func() {
		It("should set streaming headers", func() {
			reqCtx, cancel := context.WithCancel(ctx)
			defer cancel()

			req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, testServer.BaseURL+"/event", nil)
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Accept", "text/event-stream")

			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.Header.Get("Content-Type")).To(HavePrefix("text/event-stream"))
			Expect(resp.Header.Get("Cache-Control")).To(Equal("no-cache"))
		})

		It("should deliver config.updated for a successful set", func() {
			resp, err := client.SetValue(ctx, "http_connection_timeout_secs", 12)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			evt, err := sseClient.WaitForEvent("config.updated", 5*time.Second)
			Expect(err).NotTo(HaveOccurred())

			data, err := evt.ParseConfigUpdated()
			Expect(err).NotTo(HaveOccurred())
			Expect(data.Key).To(Equal("http_connection_timeout_secs"))
			Expect(data.Value).To(BeNumerically("==", 12))
		})

		It("should deliver config.saved after the debounced write", func() {
			resp, err := client.SetValue(ctx, "file_write_line_limit", 60)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			evt, err := sseClient.WaitForEvent("config.saved", 5*time.Second)
			Expect(err).NotTo(HaveOccurred())

			data, err := evt.ParseConfigSaved()
			Expect(err).NotTo(HaveOccurred())
			Expect(data.Path).To(Equal(testServer.ConfigPath))
			Expect(data.Writes).To(BeNumerically(">=", 2))
		})

		It("should deliver client.connected with the new flag", func() {
			name := "sse-" + testutil.RandomString(8)
			Expect(client.SetClient(ctx, name, "0.1.0")).To(Succeed())

			evt, err := sseClient.WaitForEvent("client.connected", 5*time.Second)
			Expect(err).NotTo(HaveOccurred())

			data, err := evt.ParseClientConnected()
			Expect(err).NotTo(HaveOccurred())
			Expect(data.Client.Name).To(Equal(name))
			Expect(data.New).To(BeTrue())
		})

		It("should announce the connection once", func() {
			Expect(sseClient.HasEventType("server.connected")).To(BeTrue())
			Expect(sseClient.CountEventType("server.connected")).To(Equal(1))
		})

		It("should send heartbeats while idle", func() {
			Expect(sseClient.WaitForHeartbeat(5 * time.Second)).To(Succeed())
		})

		It("should coalesce a burst of sets into one config.saved", func() {
			// Let saves from earlier specs settle first.
			sseClient.CollectEvents(time.Second)
			before := len(sseClient.GetAllEvents())

			for n := 61; n <= 65; n++ {
				resp, err := client.SetValue(ctx, "file_write_line_limit", n)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
			}

			_, err := sseClient.WaitForEvent("config.saved", 5*time.Second)
			Expect(err).NotTo(HaveOccurred())
			sseClient.CollectEvents(time.Second)

			matcher := testutil.NewEventMatcher(sseClient.GetAllEvents()[before:])
			Expect(matcher.CountType("config.updated")).To(Equal(5))
			Expect(matcher.CountType("config.saved")).To(Equal(1))

			updates := matcher.FilterType("config.updated")
			last, err := updates[len(updates)-1].ParseConfigUpdated()
			Expect(err).NotTo(HaveOccurred())
			Expect(last.Value).To(BeNumerically("==", 65))

			saved, err := testServer.ReadConfigFile()
			Expect(err).NotTo(HaveOccurred())
			Expect(saved).To(ContainSubstring(`"file_write_line_limit": 65`))
		})

		It("should not emit events for rejected sets", func() {
			resp, err := client.SetValue(ctx, "file_read_line_limit", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

			events := sseClient.CollectEvents(300 * time.Millisecond)
			Expect(testutil.NewEventMatcher(events).HasType("config.updated")).To(BeFalse())
		})
	})
})
