// Package core assembles a complete protocol deployment (token ledger,
// controller, treasury, shields, adapters and zap routers) over one state
// manager.
package core

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"rcavault/config"
	"rcavault/core/events"
	"rcavault/core/state"
	"rcavault/native/bank"
	"rcavault/native/controller"
	"rcavault/native/shield"
	"rcavault/native/shield/adapter"
	"rcavault/native/shield/router"
	"rcavault/native/treasury"
)

// Options carries the runtime collaborators of a deployment.
type Options struct {
	Emitter events.Emitter
	Logger  *slog.Logger
	Now     func() int64
}

// Deployment is a running protocol instance. Entry points on its engines are
// serialised through Do.
type Deployment struct {
	mu sync.Mutex

	State      *state.Manager
	Bank       *bank.Ledger
	Controller *controller.Engine
	Treasury   *treasury.Engine
	Routers    *router.Registry

	shields    map[common.Address]*shield.Engine
	order      []common.Address
	pools        map[common.Address]*adapter.LedgerPool
	incentives   map[common.Address]*adapter.LedgerIncentives
	distributors map[common.Address]*adapter.MerkleDistributor
}

// NewDeployment executes the genesis described by plan on manager.
func NewDeployment(plan *config.Plan, manager *state.Manager, opts Options) (*Deployment, error) {
	if plan == nil {
		return nil, fmt.Errorf("deployment plan must not be nil")
	}
	if manager == nil {
		return nil, fmt.Errorf("state manager must not be nil")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	d := &Deployment{
		State:      manager,
		Bank:       bank.NewLedger(manager),
		Routers:    router.NewRegistry(),
		shields:    make(map[common.Address]*shield.Engine),
		pools:        make(map[common.Address]*adapter.LedgerPool),
		incentives:   make(map[common.Address]*adapter.LedgerIncentives),
		distributors: make(map[common.Address]*adapter.MerkleDistributor),
	}

	// 1) Tokens and seeded balances.
	for _, tok := range plan.Tokens {
		if err := d.Bank.RegisterToken(bank.Token{Address: tok.Address, Symbol: tok.Symbol, Name: tok.Name, Decimals: tok.Decimals}); err != nil {
			return nil, fmt.Errorf("register token %s: %w", tok.Symbol, err)
		}
	}
	for _, bal := range plan.Balances {
		if err := d.Bank.Mint(bal.Token, bal.Holder, bal.Amount); err != nil {
			return nil, fmt.Errorf("seed balance %s/%s: %w", bal.Token.Hex(), bal.Holder.Hex(), err)
		}
	}

	// 2) Controller.
	d.Controller = controller.NewEngine(plan.Controller, plan.ChainID)
	d.Controller.SetState(manager)
	d.Controller.SetEmitter(opts.Emitter)
	d.Controller.SetLogger(logger)
	d.Controller.SetNowFunc(opts.Now)
	if err := d.Controller.Initialize(controller.Genesis{
		Governor:    plan.Governor,
		Guardian:    plan.Guardian,
		PriceOracle: plan.PriceOracle,
		CapOracle:   plan.CapOracle,
		Global:      plan.Global,
	}); err != nil {
		return nil, fmt.Errorf("initialize controller: %w", err)
	}

	// 3) Treasury.
	d.Treasury = treasury.NewEngine(plan.Global.Treasury)
	d.Treasury.SetState(manager)
	d.Treasury.SetEmitter(opts.Emitter)
	d.Treasury.SetLogger(logger)
	d.Treasury.SetPauses(d.Controller)
	if err := d.Treasury.Initialize(plan.Governor); err != nil {
		return nil, fmt.Errorf("initialize treasury: %w", err)
	}
	for _, inc := range plan.Incidents {
		if err := d.Treasury.SetClaimsRoot(plan.Governor, inc.ID, inc.Root); err != nil {
			return nil, fmt.Errorf("incident %d: %w", inc.ID, err)
		}
	}

	// 4) Zap routers, whitelisted by the guardian.
	for _, r := range plan.Routers {
		if err := d.Routers.Register(r.Address, router.NewSwap(r.Address, r.In, r.Out, r.Rate, d.Bank)); err != nil {
			return nil, err
		}
		if err := d.Controller.SetRouterVerified(plan.Guardian, r.Address, true); err != nil {
			return nil, fmt.Errorf("verify router %s: %w", r.Address.Hex(), err)
		}
	}

	// 5) Shields.
	for _, sp := range plan.Shields {
		if err := d.addShield(plan, sp, opts, logger); err != nil {
			return nil, fmt.Errorf("shield %s: %w", sp.Symbol, err)
		}
	}

	root, err := manager.Commit()
	if err != nil {
		return nil, fmt.Errorf("commit genesis state: %w", err)
	}
	logger.Info("deployment ready", "root", root.Hex(), "shields", len(d.order), "routers", len(plan.Routers))
	return d, nil
}

func (d *Deployment) adapterFor(sp config.ShieldPlan) (adapter.Adapter, error) {
	binding := adapter.Binding{Shield: sp.Address, UToken: sp.UToken, Ledger: d.Bank}
	switch sp.Adapter {
	case config.AdapterVault:
		return adapter.NewVault(binding), nil
	case config.AdapterPooled:
		pool, ok := d.pools[sp.Source]
		if !ok {
			pool = adapter.NewLedgerPool(sp.Source, d.Bank, d.State)
			d.pools[sp.Source] = pool
		}
		if err := pool.AddPool(sp.PoolID, sp.UToken); err != nil {
			return nil, err
		}
		return adapter.NewPooled(binding, pool, sp.PoolID), nil
	case config.AdapterIncentivized:
		inc, ok := d.incentives[sp.Source]
		if !ok {
			inc = adapter.NewLedgerIncentives(sp.Source, d.Bank, d.State)
			d.incentives[sp.Source] = inc
		}
		return adapter.NewIncentivized(binding, inc), nil
	case config.AdapterMerkle:
		dist, ok := d.distributors[sp.Source]
		if !ok {
			dist = adapter.NewMerkleDistributor(sp.Source, sp.Publisher, d.Bank, d.State)
			d.distributors[sp.Source] = dist
		}
		return adapter.NewMerkleRewards(binding, dist), nil
	default:
		return nil, fmt.Errorf("unknown adapter %q", sp.Adapter)
	}
}

func (d *Deployment) addShield(plan *config.Plan, sp config.ShieldPlan, opts Options, logger *slog.Logger) error {
	strategy, err := d.adapterFor(sp)
	if err != nil {
		return err
	}
	engine, err := shield.New(shield.Config{
		Address:  sp.Address,
		Name:     sp.Name,
		Symbol:   sp.Symbol,
		UToken:   sp.UToken,
		Decimals: sp.Decimals,
		Governor: plan.Governor,
	}, d.Controller, strategy)
	if err != nil {
		return err
	}
	engine.SetState(d.State)
	engine.SetEmitter(opts.Emitter)
	engine.SetLogger(logger)
	engine.SetNowFunc(opts.Now)
	engine.SetRouters(d.Routers)
	if err := engine.Initialize(); err != nil {
		return err
	}
	if err := d.Controller.InitializeShield(plan.Governor, sp.Address, sp.UToken, sp.Name, sp.Symbol); err != nil {
		return err
	}
	d.Controller.AttachShield(sp.Address, engine)
	d.shields[sp.Address] = engine
	d.order = append(d.order, sp.Address)
	return nil
}

// Shield returns the shield engine at addr.
func (d *Deployment) Shield(addr common.Address) (*shield.Engine, bool) {
	engine, ok := d.shields[addr]
	return engine, ok
}

// Shields lists deployed shield addresses in byte order.
func (d *Deployment) Shields() []common.Address {
	out := append([]common.Address(nil), d.order...)
	sort.Slice(out, func(i, j int) bool {
		return string(out[i].Bytes()) < string(out[j].Bytes())
	})
	return out
}

// Pool returns the ledger staking pool at addr, if any shield uses it.
func (d *Deployment) Pool(addr common.Address) (*adapter.LedgerPool, bool) {
	pool, ok := d.pools[addr]
	return pool, ok
}

// Incentives returns the ledger incentives controller at addr, if any shield
// uses it.
func (d *Deployment) Incentives(addr common.Address) (*adapter.LedgerIncentives, bool) {
	inc, ok := d.incentives[addr]
	return inc, ok
}

// Distributor returns the merkle reward distributor at addr, if any shield
// uses it.
func (d *Deployment) Distributor(addr common.Address) (*adapter.MerkleDistributor, bool) {
	dist, ok := d.distributors[addr]
	return dist, ok
}

// Do runs fn with exclusive access to the deployment. The state manager is
// not safe for concurrent use, so every reader and writer goes through here.
func (d *Deployment) Do(fn func(*Deployment) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return fn(d)
}
