package telemetry

import (
	"context"
	"testing"

	. "github.com/onsi/gomega"

	"taskapp/pkg/config"
)

func TestNewContainerWithoutExporters(t *testing.T) {
	RegisterTestingT(t)

	container, err := NewContainer(Config{
		ServiceName:    "taskapp-test",
		ServiceVersion: "test",
		Environment:    "test",
	}, config.NewNopLogger("taskapp-test"))

	Expect(err).ToNot(HaveOccurred())
	Expect(container.MetricsServer).To(BeNil())
	Expect(container.AppMetrics).ToNot(BeNil())
	Expect(container.NewTelemetryProbe(nil)).ToNot(BeNil())

	families, err := container.PrometheusRegistry.Gather()
	Expect(err).ToNot(HaveOccurred())
	Expect(families).ToNot(BeEmpty())

	Expect(container.Shutdown(context.Background())).To(Succeed())
}

func TestConfigFrom(t *testing.T) {
	RegisterTestingT(t)

	cfg := config.GetDefaultConfig()
	cfg.MetricsPort = ""

	got := ConfigFrom(cfg)

	Expect(got.ServiceName).To(Equal("taskapp"))
	Expect(got.OTLPEndpoint).To(Equal("localhost:4317"))
	Expect(got.MetricsPort).To(BeEmpty())
}
