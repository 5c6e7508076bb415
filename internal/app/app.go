// SPDX-License-Identifier: Apache-2.0

// Package app assembles the executor runtime from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/kusari-oss/vigil/internal/approval"
	"github.com/kusari-oss/vigil/internal/audit"
	"github.com/kusari-oss/vigil/internal/core/config"
	"github.com/kusari-oss/vigil/internal/core/models"
	"github.com/kusari-oss/vigil/internal/dispatch"
	"github.com/kusari-oss/vigil/internal/executor"
	"github.com/kusari-oss/vigil/internal/logger"
	"github.com/kusari-oss/vigil/internal/router"
	"github.com/kusari-oss/vigil/internal/store"
	"github.com/nats-io/nats.go"
)

const ensureIndicesTimeout = 30 * time.Second

// ErrNoSharedStore is returned when approvals would be exchanged through a
// store only the current process can see
var ErrNoSharedStore = errors.New("a shared approval store is required: set elasticsearch.addresses or " + config.EnvESAddresses)

// Store is everything the runtime persists: audit records and approval responses
type Store interface {
	audit.Writer
	approval.ResponseAppender
	approval.ResponseReader
}

// Options contains options for building the runtime
type Options struct {
	DryRun  bool
	Verbose bool
	// Out receives dry-run output; defaults to stdout
	Out io.Writer
	// RequireSharedStore refuses to fall back to the in-memory store
	RequireSharedStore bool
}

// App is a wired executor runtime
type App struct {
	Config   *config.Config
	Client   *dispatch.Client
	Store    Store
	Poller   *approval.Poller
	Executor *executor.PlanExecutor
	Gate     *approval.Gate

	dryRun bool
	shared bool
	conn   *nats.Conn
}

// New builds the runtime. A dry run never touches external systems: actors
// are simulated, records stay in memory and approvals are granted immediately.
func New(cfg *config.Config, opts Options) (*App, error) {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	a := &App{Config: cfg, Client: dispatch.NewClient(cfg.AgentID), dryRun: opts.DryRun}

	if opts.RequireSharedStore && !opts.DryRun && len(cfg.Elasticsearch.Addresses) == 0 {
		return nil, ErrNoSharedStore
	}
	if err := a.openStore(opts.DryRun); err != nil {
		return nil, err
	}
	if err := a.registerActors(opts); err != nil {
		a.Close()
		return nil, err
	}
	a.Poller = approval.NewPoller(a.Store)

	gate, err := a.newGate()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Gate = gate
	var approver executor.Approver = gate
	if opts.DryRun {
		approver = dryRunApprover{gate: gate, out: opts.Out}
	}

	a.Executor = executor.NewPlanExecutor(a.Client, approver, audit.NewLogger(a.Store, cfg.AgentID), models.ExecutionOptions{
		DryRun:         opts.DryRun,
		VerboseLogging: opts.Verbose,
	})
	return a, nil
}

// Close releases the NATS connection if one was opened
func (a *App) Close() {
	if a.conn != nil {
		a.conn.Close()
		a.conn = nil
	}
}

// Webhook returns the approval callback handler over the runtime's store
func (a *App) Webhook() *approval.Webhook {
	return approval.NewWebhook(a.Store, a.Config.SigningSecret)
}

// CheckApprovals fails when a plan would wait for an approval that no webhook
// process can deliver
func (a *App) CheckApprovals(plans []models.IncidentPlan) error {
	if a.dryRun || a.shared {
		return nil
	}
	for _, plan := range plans {
		for _, action := range plan.Plan.Actions {
			if a.Gate.RequiresApproval(action) {
				return fmt.Errorf("incident %s, order %d requires approval: %w", plan.IncidentID, action.Order, ErrNoSharedStore)
			}
		}
	}
	return nil
}

func (a *App) openStore(dryRun bool) error {
	if dryRun || len(a.Config.Elasticsearch.Addresses) == 0 {
		if !dryRun {
			logger.Warn("no elasticsearch addresses configured, audit records and approvals are kept in memory")
		}
		a.Store = store.NewMemory()
		return nil
	}

	es, err := store.NewElasticsearch(store.Options{
		Addresses:      a.Config.Elasticsearch.Addresses,
		APIKey:         a.Config.Elasticsearch.APIKey,
		Username:       a.Config.Elasticsearch.Username,
		Password:       a.Config.Elasticsearch.Password,
		ActionsIndex:   a.Config.Elasticsearch.ActionsIndex,
		ApprovalsIndex: a.Config.Elasticsearch.ApprovalsIndex,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), ensureIndicesTimeout)
	defer cancel()
	if err := es.EnsureIndices(ctx); err != nil {
		return err
	}

	a.Store = es
	a.shared = true
	return nil
}

func (a *App) registerActors(opts Options) error {
	cfg := a.Config
	for _, target := range router.Targets() {
		if opts.DryRun {
			a.Client.Register(target, dispatch.NewDryRunActor(opts.Out))
			continue
		}

		actorCfg, ok := cfg.ActorFor(target)
		if !ok {
			logger.Warn("no actor configured for %s, actions routed there will fail", target)
			continue
		}

		switch actorCfg.Transport {
		case config.TransportHTTP:
			a.Client.Register(target, dispatch.NewHTTPActor(actorCfg.URL, cfg.DispatchTimeout))
		case config.TransportNATS:
			conn, err := a.natsConn()
			if err != nil {
				return err
			}
			subject := actorCfg.Subject
			if subject == "" {
				subject = dispatch.SubjectFor(cfg.NATS.SubjectPrefix, target)
			}
			a.Client.Register(target, dispatch.NewNATSActor(conn, subject, cfg.DispatchTimeout))
		case config.TransportDryRun:
			a.Client.Register(target, dispatch.NewDryRunActor(opts.Out))
		default:
			return fmt.Errorf("actor %s: unknown transport %q", target, actorCfg.Transport)
		}
		logger.Debug("registered %s actor for %s", actorCfg.Transport, target)
	}
	return nil
}

// natsConn connects lazily so configs without nats actors never dial
func (a *App) natsConn() (*nats.Conn, error) {
	if a.conn != nil {
		return a.conn, nil
	}
	conn, err := nats.Connect(a.Config.NATS.URL, nats.Name(a.Config.AgentID))
	if err != nil {
		return nil, fmt.Errorf("nats: error connecting to %s: %w", a.Config.NATS.URL, err)
	}
	a.conn = conn
	return conn, nil
}

func (a *App) newGate() (*approval.Gate, error) {
	var opts []approval.GateOption
	if expr := a.Config.Approval.Policy; expr != "" {
		policy, err := approval.NewPolicy(expr)
		if err != nil {
			return nil, err
		}
		opts = append(opts, approval.WithPolicy(policy))
	}
	if a.Config.Approval.Announce {
		opts = append(opts, approval.WithRequester(approval.NewNotifyRequester(a.Client)))
	}
	return approval.NewGate(a.Poller, a.Config.PollOptions(), opts...), nil
}

// dryRunApprover reports the approval an action would wait for and grants it
type dryRunApprover struct {
	gate *approval.Gate
	out  io.Writer
}

func (d dryRunApprover) RequiresApproval(action models.RemediationAction) bool {
	return d.gate.RequiresApproval(action)
}

func (d dryRunApprover) Await(_ context.Context, incidentID, actionID string, action models.RemediationAction) (models.ApprovalDecision, error) {
	fmt.Fprintf(d.out, "Would wait for approval of %s (incident %s, order %d: %s)\n", actionID, incidentID, action.Order, action.Description)
	return models.ApprovalDecision{Status: models.ApprovalApproved, DecidedBy: models.StringPtr("dry-run")}, nil
}
