package testutil

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"testing"
	"time"
)

const (
	// DockerTestsEnv gates integration tests that need Docker.
	DockerTestsEnv = "NARRATA_DOCKER_TESTS"

	// BackendImageEnv names the backend image integration tests run.
	BackendImageEnv = "NARRATA_TEST_IMAGE"
)

// BackendConfig describes a test backend instance.
type BackendConfig struct {
	Image         string
	ContainerName string
	HostPort      string
}

// URL returns the backend base URL.
func (c BackendConfig) URL() string {
	return fmt.Sprintf("http://127.0.0.1:%s", c.HostPort)
}

// SkipUnlessDockerTests skips the test unless Docker-backed integration
// tests are enabled and a backend image is configured.
func SkipUnlessDockerTests(t *testing.T) BackendConfig {
	t.Helper()

	if os.Getenv(DockerTestsEnv) == "" {
		t.Skipf("set %s=1 to run Docker integration tests", DockerTestsEnv)
	}
	image := os.Getenv(BackendImageEnv)
	if image == "" {
		t.Skipf("set %s to the backend image to run integration tests", BackendImageEnv)
	}

	port, err := FindFreePort()
	if err != nil {
		t.Fatalf("failed to find free port: %v", err)
	}

	return BackendConfig{
		Image:         image,
		ContainerName: UniqueContainerName(t, "backend"),
		HostPort:      port,
	}
}

// WaitForBackend polls the backend until it responds or the timeout passes.
func WaitForBackend(url string, timeout time.Duration) error {
	client := &http.Client{Timeout: 2 * time.Second}
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url + "/books/")
		if err == nil {
			resp.Body.Close()
			// Any HTTP response means the service is up; an unauthenticated
			// request legitimately gets a 401.
			return nil
		}
		time.Sleep(500 * time.Millisecond)
	}

	return fmt.Errorf("backend not ready after %v", timeout)
}

// FindFreePort finds an available TCP port and returns it as a string.
func FindFreePort() (string, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", err
	}
	defer listener.Close()
	return fmt.Sprintf("%d", listener.Addr().(*net.TCPAddr).Port), nil
}
