// Command agentd is the agent kernel core's composition root: it wires the
// wire codec, transport endpoint, dispatch table, scheduler, policy engine,
// memory bus, observers, executor pipeline, registry client, and event bus
// into one running kernel, and serves until an interrupt signal arrives.
//
// Usage:
//
//	go run ./cmd/agentd -addr :7900
//	go build -o agentd ./cmd/agentd && ./agentd -addr :7900 -directory 10.0.0.1:7000
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jeeves-cluster-organization/agentkernel/dispatch"
	"github.com/jeeves-cluster-organization/agentkernel/eventbus"
	"github.com/jeeves-cluster-organization/agentkernel/executor"
	"github.com/jeeves-cluster-organization/agentkernel/identity"
	"github.com/jeeves-cluster-organization/agentkernel/internal/stdlog"
	"github.com/jeeves-cluster-organization/agentkernel/kernel"
	"github.com/jeeves-cluster-organization/agentkernel/memory"
	"github.com/jeeves-cluster-organization/agentkernel/observability"
	"github.com/jeeves-cluster-organization/agentkernel/observer"
	"github.com/jeeves-cluster-organization/agentkernel/policy"
	"github.com/jeeves-cluster-organization/agentkernel/registryclient"
	"github.com/jeeves-cluster-organization/agentkernel/scheduler"
	"github.com/jeeves-cluster-organization/agentkernel/transport"
	"github.com/jeeves-cluster-organization/agentkernel/wire"
)

func main() {
	addr := flag.String("addr", ":7900", "datagram bind address")
	directoryAddr := flag.String("directory", "", "registry directory peer address (empty disables registration)")
	governanceAddr := flag.String("governance", "", "remote audit sink peer address (empty disables remote audit)")
	tracingEndpoint := flag.String("tracing-endpoint", "", "OTLP/gRPC collector endpoint (empty disables tracing)")
	flag.Parse()

	logger := stdlog.New()
	logger.Info("agentd_starting", "address", *addr)

	if *tracingEndpoint != "" {
		shutdown, err := observability.InitTracer("agentkernel-agentd", *tracingEndpoint)
		if err != nil {
			logger.Warn("tracing_init_failed", "error", err.Error())
		} else {
			defer shutdown(context.Background())
		}
	}

	manifest := identity.NewManifest("agentd", "0.1.0", "reference agent kernel core binary", nil, nil)
	agentIdentity := identity.New(manifest)

	cfg := kernel.DefaultConfig()
	cfg.BindAddr = *addr
	cfg.DirectoryAddr = *directoryAddr
	cfg.GovernanceAddr = *governanceAddr

	k := kernel.New(agentIdentity, cfg, logger)

	bus := eventbus.New(logger)
	bus.AddMiddleware(eventbus.MetricsMiddleware{})
	k.OnEvent(func(ev *kernel.KernelEvent) {
		bus.Publish(context.Background(), eventbus.BasicEvent{
			EventType: string(ev.EventType),
			AgentID:   agentIdentity.ID().String(),
			Fields:    map[string]any{"from": ev.From.String(), "to": ev.To.String()},
		})
	})

	ep, err := transport.Bind(cfg.BindAddr, transport.Config{ReadTimeout: cfg.ReadTimeout})
	if err != nil {
		log.Fatalf("agentd: bind failed: %v", err)
	}
	defer ep.Close()
	logger.Info("transport_bound", "local_addr", ep.LocalAddr().String())

	codec := wire.FrameCodec{}

	pending := dispatch.NewPendingRequestTable()
	table := dispatch.NewTable(func(t wire.Type) {
		observability.RecordDispatchUnknownType(t.String())
	})

	policyEngine := policy.NewEngine(policy.Config{
		DefaultVerdict:     policy.VerdictAllow,
		EscalationDeadline: cfg.EscalationDeadline,
	}, logger)

	memBus := memory.NewBus(
		func(rec memory.Record) bool {
			decision := policyEngine.Evaluate(policy.Request{
				AgentID:    rec.AgentID,
				Capability: "memory-write",
				Action:     string(rec.Channel),
			})
			return decision.Verdict == policy.VerdictAllow
		},
		memory.NewRing(1000),
		nil, // no durable AppendJournal wired by default; a deployment supplies one
		logger,
	)

	composite := observer.NewComposite(observer.NewLogSink(logger))
	var governanceAddr net.Addr
	if cfg.GovernanceAddr != "" {
		var err error
		governanceAddr, err = net.ResolveUDPAddr("udp", cfg.GovernanceAddr)
		if err != nil {
			logger.Warn("governance_addr_unresolvable", "address", cfg.GovernanceAddr, "error", err.Error())
		} else {
			sender := func(frame []byte) error {
				_, sendErr := ep.Send(frame, governanceAddr)
				return sendErr
			}
			remote := observer.NewRemoteAuditSink(codec, sender, logger)
			composite.Add(observer.NewBoundedQueue(remote, 256, logger))
		}
	}

	pipeline := executor.NewPipeline(policyEngine, nil, nil, memBus, composite, logger)
	sched := scheduler.New(cfg.MaxConcurrentCalls, cfg.InboundQueueDepth)

	table.Register(wire.TypeCall, func(ctx dispatch.HandlerContext, msg wire.Message) (*wire.Message, error) {
		release, err := sched.Admit()
		if err != nil {
			errMsg := wire.WithTraceID(wire.TypeError, ctx.TraceID, []byte("overloaded"))
			return &errMsg, err
		}
		var releaseOnce sync.Once
		dequeue := func() { releaseOnce.Do(release) }
		defer dequeue()

		req, err := parseCall(msg.Payload)
		if err != nil {
			errMsg := wire.WithTraceID(wire.TypeError, ctx.TraceID, []byte(err.Error()))
			return &errMsg, err
		}
		req.AgentID = ctx.Peer
		req.TraceID = ctx.TraceID

		var result executor.Result
		var execErr error
		runErr := sched.Run(context.Background(), func(runCtx context.Context) {
			dequeue()
			callCtx, cancel := context.WithTimeout(runCtx, cfg.CallDeadline)
			defer cancel()
			result, execErr = pipeline.Execute(callCtx, req)
		})
		if runErr != nil {
			return nil, runErr
		}
		if len(result.Messages) == 0 {
			return nil, execErr
		}
		// Only the first frame of the result is replied to the peer; the
		// StreamChunk and StreamClose frames of a model stream are not sent.
		return &result.Messages[0], execErr
	})

	sweep := scheduler.StartPeriodic(cfg.SweepInterval, func() {
		for range pending.Sweep(time.Now()) {
			observability.RecordPendingTimeout()
		}
	})
	defer sweep.Stop()

	// serveLoop must already be reading before any registry round-trip is
	// attempted below, since Register/Heartbeat now block awaiting an Ack
	// or Error that only serveLoop's dispatcher can deliver.
	go serveLoop(ep, codec, table, logger)

	if cfg.DirectoryAddr != "" {
		directoryAddr, err := net.ResolveUDPAddr("udp", cfg.DirectoryAddr)
		if err != nil {
			log.Fatalf("agentd: unresolvable directory address %q: %v", cfg.DirectoryAddr, err)
		}
		regTransport := newUDPRegistryTransport(codec, ep, directoryAddr, agentIdentity)
		// Ack/Error frames from the directory are read by serveLoop's single
		// dispatcher goroutine and handed to the transport by trace id,
		// since transport.Endpoint.Recv permits only one reader.
		table.Register(wire.TypeAck, func(ctx dispatch.HandlerContext, msg wire.Message) (*wire.Message, error) {
			regTransport.deliver(msg)
			return nil, nil
		})
		table.Register(wire.TypeError, func(ctx dispatch.HandlerContext, msg wire.Message) (*wire.Message, error) {
			regTransport.deliver(msg)
			return nil, nil
		})

		regClient := registryclient.New(regTransport, agentIdentity, logger)
		regCtx, regCancel := context.WithCancel(context.Background())
		defer regCancel()
		if err := regClient.Register(regCtx); err != nil {
			logger.Warn("registry_register_failed_at_startup", "error", err.Error())
		}
		go regClient.HeartbeatLoop(regCtx, cfg.HeartbeatInterval)
	}

	if err := k.Start(); err != nil {
		log.Fatalf("agentd: kernel start failed: %v", err)
	}
	if err := k.Activate(); err != nil {
		log.Fatalf("agentd: kernel activate failed: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("agentd_ready", "address", ep.LocalAddr().String())
	fmt.Printf("\nagentd running on %s\nPress Ctrl+C to stop\n", ep.LocalAddr())

	sig := <-sigCh
	logger.Info("shutdown_signal_received", "signal", sig.String())

	shutdownErr := k.Shutdown(
		func() error {
			if !sched.Drain(cfg.DrainDeadline) {
				return fmt.Errorf("agentd: %d calls still inflight after drain deadline", sched.Inflight())
			}
			return nil
		},
	)
	if shutdownErr != nil {
		logger.Warn("agentd_shutdown_errors", "error", shutdownErr.Error())
	}
	logger.Info("agentd_stopped")
}

func serveLoop(ep *transport.Endpoint, codec wire.MessageCodec, table *dispatch.Table, logger *stdlog.Logger) {
	buf := make([]byte, wire.MaxPayloadBytes+64)
	for {
		n, peer, status, err := ep.Recv(buf)
		if err != nil {
			if ep.Closed() {
				return
			}
			logger.Warn("recv_error", "error", err.Error())
			continue
		}
		if status == transport.StatusWouldBlock {
			continue
		}

		msg, err := codec.Decode(buf[:n])
		if err != nil {
			logger.Warn("decode_error", "error", err.Error())
			continue
		}

		peerStr := ""
		if peer != nil {
			peerStr = peer.String()
		}
		resp, dispatchErr := table.Dispatch(dispatch.HandlerContext{Peer: peerStr, TraceID: msg.TraceID}, msg)
		if dispatchErr != nil {
			logger.Warn("dispatch_error", "error", dispatchErr.Error(), "peer", peerStr)
		}
		if resp == nil || peer == nil {
			continue
		}
		frame, err := codec.Encode(*resp)
		if err != nil {
			logger.Warn("encode_error", "error", err.Error())
			continue
		}
		if _, err := ep.Send(frame, peer); err != nil {
			logger.Warn("send_error", "error", err.Error())
		}
	}
}
