package server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cyrup-ai/kodegen-tools-config/citest/testutil"
)

var _ = Describe("Config Server Endpoints", func() {

	// ==================== Health ====================
	Describe("GET /health", func() {
		It("should report ok with the config path", func() {
			health, err := client.Health(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(health.Status).To(Equal("ok"))
			Expect(health.Path).To(Equal(testServer.ConfigPath))
			Expect(health.SaveErrorCount).To(BeZero())
			Expect(health.Writes).To(BeNumerically(">=", 1))
		})
	})

	Describe("CORS", func() {
		It("should allow cross-origin requests", func() {
			origin := "http://localhost:5173"
			resp, err := client.Get(ctx, "/health", testutil.WithHeader("Origin", origin))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Headers.Get("Access-Control-Allow-Origin")).To(Or(Equal("*"), Equal(origin)))
		})
	})

	// ==================== Config ====================
	Describe("GET /config", func() {
		It("should return the full configuration with system info", func() {
			cfg, err := client.GetConfig(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.BlockedCommands).To(ContainElements("rm", "sudo"))
			Expect(cfg.FileReadLineLimit).To(BeNumerically(">", 0))
			Expect(cfg.SystemInfo).NotTo(BeNil())
			Expect(cfg.SystemInfo.Platform).NotTo(BeEmpty())
		})

		It("should return JSON content type", func() {
			resp, err := client.Get(ctx, "/config")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Headers.Get("Content-Type")).To(ContainSubstring("application/json"))
		})
	})

	Describe("GET /config/{key}", func() {
		It("should return a single value", func() {
			value, err := client.GetValue(ctx, "path_validation_timeout_ms")
			Expect(err).NotTo(HaveOccurred())
			Expect(value.Key).To(Equal("path_validation_timeout_ms"))
			Expect(value.Value).To(BeNumerically("==", 30000))
		})

		It("should return 404 with a structured error for unknown keys", func() {
			resp, err := client.Get(ctx, "/config/nonexistent_key")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))

			apiErr, err := resp.ParseError()
			Expect(err).NotTo(HaveOccurred())
			Expect(apiErr.Error.Code).To(Equal("NOT_FOUND"))
			Expect(apiErr.Error.Message).To(ContainSubstring("nonexistent_key"))
		})
	})

	Describe("PUT /config/{key}", func() {
		It("should update a value and persist it", func() {
			resp, err := client.SetValue(ctx, "file_write_line_limit", 75)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body testutil.ValueResponse
			Expect(resp.JSON(&body)).To(Succeed())
			Expect(body.Value).To(BeNumerically("==", 75))

			value, err := client.GetValue(ctx, "file_write_line_limit")
			Expect(err).NotTo(HaveOccurred())
			Expect(value.Value).To(BeNumerically("==", 75))

			Eventually(func() (map[string]any, error) {
				data, err := testServer.ReadConfigFile()
				if err != nil {
					return nil, err
				}
				var onDisk map[string]any
				err = json.Unmarshal([]byte(data), &onDisk)
				return onDisk, err
			}, 5*time.Second, 50*time.Millisecond).Should(HaveKeyWithValue("file_write_line_limit", BeNumerically("==", 75)))
		})

		It("should store the fuzzy threshold as a percentage", func() {
			DeferCleanup(func() {
				client.SetValue(ctx, "fuzzy_search_threshold", 70)
			})

			resp, err := client.SetValue(ctx, "fuzzy_search_threshold", 85)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			cfg, err := client.GetConfig(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.FuzzySearchThreshold).To(BeNumerically("~", 0.85, 1e-9))
		})

		DescribeTable("should reject invalid values",
			func(key string, value any, reason string, message string) {
				before, err := client.GetConfig(ctx)
				Expect(err).NotTo(HaveOccurred())

				resp, err := client.SetValue(ctx, key, value)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

				apiErr, err := resp.ParseError()
				Expect(err).NotTo(HaveOccurred())
				Expect(apiErr.Error.Code).To(Equal("INVALID_REQUEST"))
				Expect(apiErr.Error.Details).To(HaveKeyWithValue("reason", reason))
				Expect(apiErr.Error.Message).To(ContainSubstring(message))

				after, err := client.GetConfig(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(after.FileReadLineLimit).To(Equal(before.FileReadLineLimit))
				Expect(after.PathValidationTimeoutMs).To(Equal(before.PathValidationTimeoutMs))
			},
			Entry("negative limit", "file_read_line_limit", -100, "out_of_range", "file_read_line_limit must be positive"),
			Entry("timeout above maximum", "path_validation_timeout_ms", 700000, "out_of_range", "cannot exceed 600000ms"),
			Entry("threshold above 100", "fuzzy_search_threshold", 150, "out_of_range", "must be between 0 and 100"),
			Entry("string for a number", "file_read_line_limit", "lots", "type_mismatch", "expected number"),
			Entry("number for an array", "blocked_commands", 5, "type_mismatch", "expected array"),
			Entry("unknown key with a suggestion", "file_read_line_limt", 10, "unknown_key", `did you mean "file_read_line_limit"?`),
		)

		It("should require a value", func() {
			resp, err := client.Put(ctx, "/config/default_shell", map[string]any{})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

			apiErr, err := resp.ParseError()
			Expect(err).NotTo(HaveOccurred())
			Expect(apiErr.Error.Message).To(Equal("value is required"))
		})

		It("should reject methods other than GET and PUT", func() {
			resp, err := client.Delete(ctx, "/config/default_shell")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusMethodNotAllowed))

			resp, err = client.Patch(ctx, "/config/default_shell", map[string]any{"value": "/bin/patched"})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusMethodNotAllowed))

			value, err := client.GetValue(ctx, "default_shell")
			Expect(err).NotTo(HaveOccurred())
			Expect(value.Value).NotTo(Equal("/bin/patched"))
		})

		It("should reject malformed JSON", func() {
			req, err := http.NewRequest(http.MethodPut, testServer.BaseURL+"/config/default_shell", bytes.NewBufferString("{not json"))
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Content-Type", "application/json")

			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	// ==================== Clients ====================
	Describe("Client Endpoints", func() {
		It("should record a client and expose it in history", func() {
			name := "citest-" + testutil.RandomString(8)
			Expect(client.SetClient(ctx, name, "1.2.3")).To(Succeed())

			resp, err := client.Get(ctx, "/client")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var current struct {
				Name    string `json:"name"`
				Version string `json:"version"`
			}
			Expect(resp.JSON(&current)).To(Succeed())
			Expect(current.Name).To(Equal(name))

			history, err := client.GetClientHistory(ctx)
			Expect(err).NotTo(HaveOccurred())

			matches := 0
			for _, h := range history {
				if h.Name == name && h.Version == "1.2.3" {
					matches++
					Expect(h.LastSeen).NotTo(BeTemporally("<", h.ConnectedAt))
				}
			}
			Expect(matches).To(Equal(1))
		})

		It("should not duplicate a reconnecting client", func() {
			name := "citest-" + testutil.RandomString(8)
			Expect(client.SetClient(ctx, name, "1.0.0")).To(Succeed())
			Expect(client.SetClient(ctx, name, "1.0.0")).To(Succeed())
			Expect(client.SetClient(ctx, name, "2.0.0")).To(Succeed())

			history, err := client.GetClientHistory(ctx)
			Expect(err).NotTo(HaveOccurred())

			versions := []string{}
			for _, h := range history {
				if h.Name == name {
					versions = append(versions, h.Version)
				}
			}
			Expect(versions).To(ConsistOf("1.0.0", "2.0.0"))
		})

		It("should require a client name", func() {
			resp, err := client.Post(ctx, "/client", map[string]string{"version": "1.0"})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	// ==================== Access Checks ====================
	Describe("GET /check/command", func() {
		DescribeTable("should evaluate command lines",
			func(line string, allowed bool, blocked string) {
				check, err := client.CheckCommand(ctx, line)
				Expect(err).NotTo(HaveOccurred())
				Expect(check.Allowed).To(Equal(allowed))
				Expect(check.Command).To(Equal(blocked))
			},
			Entry("plain command", "ls -la", true, ""),
			Entry("blocked command", "sudo ls", false, "sudo"),
			Entry("blocked by absolute path", "/bin/rm -rf /tmp/x", false, "/bin/rm"),
			Entry("blocked inside a pipeline", "cat notes.txt | shred", false, "shred"),
		)

		It("should require cmd", func() {
			resp, err := client.Get(ctx, "/check/command")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("GET /check/path", func() {
		var dir *testutil.TempDir

		BeforeEach(func() {
			var err error
			dir, err = testutil.NewTempDir()
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(dir.Cleanup)
		})

		It("should allow everything when no directories are configured", func() {
			check, err := client.CheckPath(ctx, filepath.Join(dir.Path, "anything"))
			Expect(err).NotTo(HaveOccurred())
			Expect(check.Allowed).To(BeTrue())
		})

		It("should allow an existing file", func() {
			file, err := dir.CreateFile("src/main.go", "package main\n")
			Expect(err).NotTo(HaveOccurred())
			Expect(file.Exists()).To(BeTrue())

			check, err := client.CheckPath(ctx, file.Path)
			Expect(err).NotTo(HaveOccurred())
			Expect(check.Allowed).To(BeTrue())
		})

		It("should honor allowed and denied directories", func() {
			secrets, err := dir.CreateSubDir("secrets")
			Expect(err).NotTo(HaveOccurred())

			DeferCleanup(func() {
				client.SetValue(ctx, "allowed_directories", []string{})
				client.SetValue(ctx, "denied_directories", []string{})
			})

			resp, err := client.SetValue(ctx, "allowed_directories", []string{dir.Path})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			resp, err = client.SetValue(ctx, "denied_directories", []string{secrets})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			inside, err := client.CheckPath(ctx, filepath.Join(dir.Path, "src", "main.go"))
			Expect(err).NotTo(HaveOccurred())
			Expect(inside.Allowed).To(BeTrue())

			denied, err := client.CheckPath(ctx, filepath.Join(secrets, "key.pem"))
			Expect(err).NotTo(HaveOccurred())
			Expect(denied.Allowed).To(BeFalse())

			outside, err := client.CheckPath(ctx, filepath.Join(filepath.Dir(dir.Path), "elsewhere"))
			Expect(err).NotTo(HaveOccurred())
			Expect(outside.Allowed).To(BeFalse())
		})
	})
})
