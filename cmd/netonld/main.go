//go:build linux

package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"log/slog"

	"netonl"
)

var (
	rxtxThreshold        = flag.Duration("rxtx-threshold", 1500*time.Millisecond, "link-down threshold as a duration (e.g. 1500ms, 2s)")
	useKernelDataPath    = flag.Bool("kernel-data-path", false, "use the eBPF/TC data path instead of userspace pcap capture")
	kernelProgramPath    = flag.String("kernel-program-path", "", "path to the compiled classifier object (required with -kernel-data-path)")
	icmpTargets          = flag.String("icmp-targets", "", "comma-separated list of hosts to actively probe, empty disables active probing")
	icmpInterval         = flag.Duration("icmp-interval", 1*time.Second, "interval between active probes")
	countOutboundUDPAsTX = flag.Bool("count-outbound-udp-as-tx", false, "treat outbound UDP frames as TX activity")
	enableAckCrossCheck  = flag.Bool("enable-ack-cross-check", false, "track TCP ACKs for the optional cross-check store")
	metricsEnable        = flag.Bool("metrics-enable", false, "enable prometheus metrics")
	metricsAddr          = flag.String("metrics-addr", "localhost:0", "address to listen on for prometheus metrics")
	enableVerboseLogging = flag.Bool("v", false, "enables verbose logging")
	versionFlag          = flag.Bool("version", false, "build version")

	// set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	flag.Parse()

	opts := &slog.HandlerOptions{}
	if *enableVerboseLogging {
		opts = &slog.HandlerOptions{Level: slog.LevelDebug}
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, opts))
	slog.SetDefault(logger)

	if *versionFlag {
		fmt.Printf("build: %s\n", commit)
		fmt.Printf("version: %s\n", version)
		fmt.Printf("date: %s\n", date)
		os.Exit(0)
	}

	if flag.NArg() < 1 {
		slog.Error("missing required argument: <interface>")
		os.Exit(1)
	}
	iface := flag.Arg(0)

	var targets []string
	if *icmpTargets != "" {
		targets = strings.Split(*icmpTargets, ",")
	}

	reg := prometheus.NewRegistry()
	if *metricsEnable {
		buildInfo := promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "netonl_build_info",
				Help: "Build information of the notifier",
			},
			[]string{"version", "commit", "date"},
		)
		buildInfo.WithLabelValues(version, commit, date).Set(1)

		go func() {
			listener, err := net.Listen("tcp", *metricsAddr)
			if err != nil {
				slog.Error("failed to start prometheus metrics listener", "error", err)
				os.Exit(1)
			}
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

			slog.Info("prometheus metrics server started", "address", listener.Addr().String())
			if err := http.Serve(listener, mux); err != nil {
				slog.Error("prometheus metrics server stopped", "error", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := netonl.Config{
		Logger:               logger,
		RXTXThreshold:        *rxtxThreshold,
		UseKernelDataPath:    *useKernelDataPath,
		KernelProgramPath:    *kernelProgramPath,
		ICMPTargets:          targets,
		ICMPInterval:         *icmpInterval,
		CountOutboundUDPAsTX: *countOutboundUDPAsTX,
		EnableAckCrossCheck:  *enableAckCrossCheck,
		MetricsRegistry:      reg,
	}

	ctrl, err := netonl.New(iface, cfg, clockwork.NewRealClock())
	if err != nil {
		slog.Error("failed to construct controller", "interface", iface, "error", err)
		os.Exit(1)
	}

	events, err := ctrl.Start()
	if err != nil {
		slog.Error("failed to start controller", "interface", iface, "error", err)
		os.Exit(1)
	}
	defer ctrl.Stop()

	slog.Info("netonl started", "interface", iface)

	states := make(chan netonl.State)
	go func() {
		defer close(states)
		for {
			st, ok := events.Recv()
			if !ok {
				return
			}
			states <- st
		}
	}()

	for {
		select {
		case <-ctx.Done():
			slog.Info("shutting down")
			return
		case st, ok := <-states:
			if !ok {
				slog.Info("event stream closed")
				return
			}
			slog.Info("state changed", "interface", iface, "state", st.String())
		}
	}
}
