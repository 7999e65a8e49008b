package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eclipse-pullpiri/pullpiri/pkg/actioncontroller"
	"github.com/eclipse-pullpiri/pullpiri/pkg/config"
	"github.com/eclipse-pullpiri/pullpiri/pkg/errorbus"
	"github.com/eclipse-pullpiri/pullpiri/pkg/kv"
	"github.com/eclipse-pullpiri/pullpiri/pkg/log"
	"github.com/eclipse-pullpiri/pullpiri/pkg/metrics"
	"github.com/eclipse-pullpiri/pullpiri/pkg/nodeagent"
	"github.com/eclipse-pullpiri/pullpiri/pkg/registry"
	"github.com/eclipse-pullpiri/pullpiri/pkg/rpc"
	"github.com/eclipse-pullpiri/pullpiri/pkg/statemachine"
	"github.com/eclipse-pullpiri/pullpiri/pkg/statemanager"
	"github.com/eclipse-pullpiri/pullpiri/pkg/types"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "piccolod",
	Short: "piccolod runs the state and action reconciliation subsystem of a Piccolo cluster",
	Long: `piccolod hosts the cluster's state machine: per-resource FSMs driven by
incoming container reports and state changes, an action controller that
carries out the resulting scenario actions against federation and node
agent hosts, and the node registry and node agent halves of that
conversation.`,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(masterCmd)
	rootCmd.AddCommand(agentCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")
	logJSON = logJSON || config.FromEnv().JSONLogging()

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

func startMetricsServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/health", metrics.HealthHandler())
	mux.Handle("/ready", metrics.ReadyHandler())
	mux.Handle("/live", metrics.LivenessHandler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Logger.Error().Err(err).Str("addr", addr).Msg("metrics server stopped")
		}
	}()
}

// masterCmd runs the cluster-facing half: node registry, state machine
// engine, state manager, and action controller, fronted by a MasterPlane
// RPC server that node agents dial into.
var masterCmd = &cobra.Command{
	Use:   "master",
	Short: "Run the node registry, state manager, and action controller",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromEnv()
		dataDir, _ := cmd.Flags().GetString("data-dir")
		rpcAddr, _ := cmd.Flags().GetString("rpc-addr")
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
		federationAddr, _ := cmd.Flags().GetString("federation-control-addr")
		nodeAgentAddr, _ := cmd.Flags().GetString("node-agent-control-addr")

		logger := log.WithComponent("piccolod.master")

		metrics.SetCriticalComponents("store", "registry", "rpc")
		store, err := kv.NewBoltStore(dataDir + "/piccolo.db")
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		metrics.RegisterComponent("store", true, "opened")

		bus := errorbus.NewBus(0)
		bus.Start()
		defer bus.Stop()

		reg := registry.New(store, time.Duration(cfg.StaleNodeThresholdSeconds)*time.Second)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		if err := reg.LoadAll(ctx); err != nil {
			return fmt.Errorf("load registry: %w", err)
		}
		reg.StartSweeper(ctx)
		defer reg.Stop()
		metrics.RegisterComponent("registry", true, "loaded")

		collector := metrics.NewCollector(reg)
		collector.Start()
		defer collector.Stop()

		engine := statemachine.NewEngine(store, statemachine.Options{
			BackoffDuration:     time.Duration(cfg.BackoffDurationSeconds) * time.Second,
			ActionQueueCapacity: cfg.ActionQueueCapacity,
			OnActionDropped: func(cmd types.ActionCommand) {
				logger.Warn().Str("action", cmd.Action).Str("resource_key", cmd.ResourceKey).Msg("action command dropped, queue full")
			},
		})
		if err := engine.LoadStartupState(ctx); err != nil {
			return fmt.Errorf("load startup state: %w", err)
		}

		var federation actioncontroller.FederationClient
		if federationAddr != "" {
			conn, err := rpc.Dial(federationAddr)
			if err != nil {
				return fmt.Errorf("dial federation control plane: %w", err)
			}
			federation = rpc.NewControlClient(conn)
		} else {
			federation = actioncontroller.StubFederationClient{}
		}

		var nodeAgentClient actioncontroller.NodeAgentClient
		if nodeAgentAddr != "" {
			conn, err := rpc.Dial(nodeAgentAddr)
			if err != nil {
				return fmt.Errorf("dial node agent control plane: %w", err)
			}
			nodeAgentClient = rpc.NewNodeAgentControlClient(conn)
		} else {
			nodeAgentClient = actioncontroller.StubNodeAgentClient{}
		}

		controller := actioncontroller.New(store, federation, nodeAgentClient, cfg)
		executor := statemanager.NewControllerExecutor(controller)
		svc := statemanager.New(engine, executor, 0, 0)
		svc.Start(ctx)
		defer svc.Stop()

		startMetricsServer(metricsAddr)

		server := rpc.NewMasterServer(reg, svc)
		errCh := make(chan error, 1)
		go func() {
			if err := server.Serve(rpcAddr); err != nil {
				errCh <- err
			}
		}()
		metrics.RegisterComponent("rpc", true, "listening")

		logger.Info().Str("rpc_addr", rpcAddr).Str("metrics_addr", metricsAddr).Msg("master plane ready")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		select {
		case <-sigCh:
			logger.Info().Msg("shutting down")
		case err := <-errCh:
			return fmt.Errorf("rpc server: %w", err)
		}
		return nil
	},
}

func init() {
	masterCmd.Flags().String("data-dir", "/var/lib/piccolo", "Directory for the durable KV store")
	masterCmd.Flags().String("rpc-addr", "0.0.0.0:47001", "Address the MasterPlane RPC server listens on")
	masterCmd.Flags().String("metrics-addr", "127.0.0.1:9090", "Address the Prometheus metrics endpoint listens on")
	masterCmd.Flags().String("federation-control-addr", "", "ControlPlane address of the federation (bluechi) host; empty uses a no-op stub")
	masterCmd.Flags().String("node-agent-control-addr", "", "ControlPlane address of the node agent host; empty uses a no-op stub")
}

// agentCmd runs the node-local half: registration/heartbeat against the
// master, a ControlPlane server for unit start/stop dispatched from the
// action controller, and a health monitor over discovered containers.
var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run the node agent: registration, heartbeat, and container health monitoring",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromEnv()
		masterAddr, _ := cmd.Flags().GetString("master-addr")
		controlAddr, _ := cmd.Flags().GetString("control-addr")
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
		nodeID, _ := cmd.Flags().GetString("node-id")

		if cfg.MasterIP != "" {
			masterAddr = cfg.MasterIP
		}
		if cfg.NodeName != "" {
			nodeID = cfg.NodeName
		}

		logger := log.WithComponent("piccolod.agent")
		metrics.SetCriticalComponents("master_conn", "control_plane")

		bus := errorbus.NewBus(0)
		bus.Start()
		defer bus.Stop()

		conn, err := rpc.Dial(masterAddr)
		if err != nil {
			return fmt.Errorf("dial master: %w", err)
		}
		defer conn.Close()
		metrics.RegisterComponent("master_conn", true, "dialed")

		agent := nodeagent.New(nodeagent.Options{
			NodeID:   nodeID,
			NodeName: nodeID,
			Role:     types.NodeRole(cfg.NodeRole),
			Master:   rpc.NewMasterClient(conn),
		})

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		agent.Start(ctx)
		defer agent.Stop()

		monitor := nodeagent.NewHealthMonitor(agent, bus.Reporter("nodeagent.health"))
		monitor.Start(ctx)
		defer monitor.Stop()

		startMetricsServer(metricsAddr)

		handler := rpc.UnitHandler{
			Start: func(ctx context.Context, model, node, target string) (bool, error) {
				logger.Info().Str("model", model).Str("node", node).Str("target", target).Msg("unit start requested, no local runtime bound")
				return true, nil
			},
			Stop: func(ctx context.Context, model, node string) (bool, error) {
				logger.Info().Str("model", model).Str("node", node).Msg("unit stop requested, no local runtime bound")
				return true, nil
			},
		}

		errCh := make(chan error, 1)
		go func() {
			if err := rpc.ServeControlPlane(controlAddr, handler); err != nil {
				errCh <- err
			}
		}()
		metrics.RegisterComponent("control_plane", true, "listening")

		logger.Info().Str("master_addr", masterAddr).Str("control_addr", controlAddr).Str("node_id", nodeID).Msg("node agent ready")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		select {
		case <-sigCh:
			logger.Info().Msg("shutting down")
		case err := <-errCh:
			return fmt.Errorf("control plane server: %w", err)
		}
		return nil
	},
}

func init() {
	agentCmd.Flags().String("master-addr", "127.0.0.1:47001", "Address of the master's MasterPlane RPC server")
	agentCmd.Flags().String("control-addr", "0.0.0.0:47002", "Address this node's ControlPlane RPC server listens on")
	agentCmd.Flags().String("metrics-addr", "127.0.0.1:9091", "Address the Prometheus metrics endpoint listens on")
	agentCmd.Flags().String("node-id", "node-1", "This node's identifier, overridden by PICCOLO_NODE_NAME")
}
