package ledger

import (
	"sync"

	"github.com/aurum-chain/aurum/internal/chainerr"
	"github.com/aurum-chain/aurum/internal/crypto"
)

// blockEffects is the reversible journal entry for one applied block: a
// pre-image of every account and validator it touched, sufficient to
// undo the block's mutations without replaying the whole chain. This is
// the "reversible journal of applied effects" spec.md section 4.2 asks
// fork resolution to rewind through.
type blockEffects struct {
	accountPreimages   map[string]*Account // nil value means "did not exist before"
	validatorPreimages map[string]*Validator // nil value means "did not exist before"
	mintedReward       uint64
}

// Ledger is the single source of truth for chain state: the main chain,
// side branches awaiting more work, orphan blocks awaiting their parent,
// the pending transaction pool, accounts and validators. All mutation
// happens through AppendBlock/InsertTransaction under a single
// sync.RWMutex — the single logical writer spec.md section 5 requires.
//
// The main chain is tracked as a height-keyed map rather than a slice
// indexed by height, so a node resuming from a snapshot can seed the
// ledger at a nonzero height without having to backfill every earlier
// block just to keep position-in-slice equal to height.
type Ledger struct {
	mu sync.RWMutex

	params Params

	tipHeight uint64
	byHeight  map[uint64]*Block
	byHash    map[string]*Block
	journal   map[uint64]blockEffects

	accounts   map[string]*Account
	validators map[string]*Validator

	pool *Pool

	// sideBranches buffers blocks that validate but extend a known,
	// non-tip ancestor — keyed by that ancestor's hash.
	sideBranches map[string][]*Block
	// orphans buffers blocks whose parent has not arrived at all yet,
	// keyed by the missing parent's hash.
	orphans map[string][]*Block

	mintedReward uint64
}

// New creates a ledger seeded with the genesis block.
func New(params Params) *Ledger {
	genesis := Genesis(params)
	l := &Ledger{
		params:       params,
		byHeight:     map[uint64]*Block{0: genesis},
		byHash:       make(map[string]*Block),
		journal:      map[uint64]blockEffects{0: {}},
		accounts:     make(map[string]*Account),
		validators:   make(map[string]*Validator),
		pool:         NewPool(DefaultPoolCapacity, DefaultPoolExpiry),
		sideBranches: make(map[string][]*Block),
		orphans:      make(map[string][]*Block),
	}
	l.byHash[HashHeader(&genesis.Header)] = genesis
	return l
}

// RestoreTrustedHead seeds the ledger from a previously written snapshot
// instead of genesis: accounts, validators and minted-reward totals are
// installed directly, and head becomes the new tip with no further
// validation. Callers are expected to then re-append the last few
// blocks after the snapshot height through AppendBlock so at least a
// short tail gets re-verified rather than trusted blindly, per spec.md
// section 9's crash-recovery note. Must be called before any other
// method on a freshly constructed Ledger.
func (l *Ledger) RestoreTrustedHead(head *Block, accounts map[string]Account, validators map[string]Validator, mintedReward uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.accounts = make(map[string]*Account, len(accounts))
	for addr, a := range accounts {
		copyAccount := a
		l.accounts[addr] = &copyAccount
	}
	l.validators = make(map[string]*Validator, len(validators))
	for addr, v := range validators {
		copyValidator := v
		l.validators[addr] = &copyValidator
	}
	l.mintedReward = mintedReward

	l.tipHeight = head.Header.Height
	l.byHeight = map[uint64]*Block{head.Header.Height: head}
	l.journal = map[uint64]blockEffects{head.Header.Height: {}}
	l.byHash = map[string]*Block{HashHeader(&head.Header): head}
	l.sideBranches = make(map[string][]*Block)
	l.orphans = make(map[string][]*Block)
}

// Params returns the chain's fixed parameters.
func (l *Ledger) Params() Params { return l.params }

// Pool returns the ledger's pending transaction pool.
func (l *Ledger) Pool() *Pool { return l.pool }

// Height returns the current tip's height.
func (l *Ledger) Height() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.tipHeight
}

// Tip returns the current tip block.
func (l *Ledger) Tip() *Block {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.byHeight[l.tipHeight]
}

// TipHash returns the header hash of the current tip.
func (l *Ledger) TipHash() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return HashHeader(&l.byHeight[l.tipHeight].Header)
}

// BlockByHeight returns the main-chain block at height, if any.
func (l *Ledger) BlockByHeight(height uint64) (*Block, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	b, ok := l.byHeight[height]
	return b, ok
}

// BlockByHash returns any known block (main chain, side branch, or
// orphan) with the given header hash.
func (l *Ledger) BlockByHash(hash string) (*Block, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	b, ok := l.byHash[hash]
	return b, ok
}

// Account returns a copy of the account state for addr, or a fresh zero
// account if it has never been mentioned.
func (l *Ledger) Account(addr string) Account {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if a, ok := l.accounts[addr]; ok {
		return *a
	}
	return Account{Address: addr}
}

// Validator returns the validator record for addr, if any.
func (l *Ledger) Validator(addr string) (Validator, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	v, ok := l.validators[addr]
	if !ok {
		return Validator{}, false
	}
	return *v, true
}

// Validators returns a snapshot of every validator on record.
func (l *Ledger) Validators() []Validator {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Validator, 0, len(l.validators))
	for _, v := range l.validators {
		out = append(out, *v)
	}
	return out
}

// TotalSupply is initialSupply plus every reward minted since genesis
// (spec.md section 3's supply invariant; genesis itself carries no
// transactions, so the initial allocation is tracked as a ledger-level
// constant rather than credited to any single account — see DESIGN.md).
func (l *Ledger) TotalSupply() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.params.InitialSupply + l.mintedReward
}

// ElectProposerForNextHeight returns the address elected to propose the
// block following the current tip.
func (l *Ledger) ElectProposerForNextHeight() (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	parentHash := HashHeader(&l.byHeight[l.tipHeight].Header)
	return ElectProposer(l.validators, parentHash)
}

// InsertTransaction validates tx against the current confirmed state
// (not the pool's speculative state) and, if valid, adds it to the pool.
func (l *Ledger) InsertTransaction(tx Transaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pool.Has(tx.ID) {
		return chainerr.New(chainerr.DuplicateTransaction, "transaction already pooled")
	}

	s := l.snapshotState()
	if err := validateTransaction(&tx, s); err != nil {
		return err
	}
	return l.pool.Insert(tx)
}

// AssembleNextBlock builds and signs a candidate block extending the
// current tip, for proposer using priv. Only meaningful when the local
// node was elected proposer for the next height.
func (l *Ledger) AssembleNextBlock(proposer string, priv crypto.PrivateKey, timestamp int64) (*Block, error) {
	l.mu.RLock()
	tip := l.byHeight[l.tipHeight]
	parentID := HashHeader(&tip.Header)
	s := l.snapshotState()
	params := l.params
	pool := l.pool
	l.mu.RUnlock()

	block := AssembleBlock(pool, s, params, tip.Header.Height+1, parentID, timestamp, proposer)
	if err := SignBlock(block, priv); err != nil {
		return nil, err
	}
	return block, nil
}

func (l *Ledger) snapshotState() *state {
	s := newState(l.params)
	for addr, a := range l.accounts {
		copyAccount := *a
		s.accounts[addr] = &copyAccount
	}
	for addr, v := range l.validators {
		copyValidator := *v
		s.validators[addr] = &copyValidator
	}
	return s
}

// AppendBlock is the single entry point for adding a block learned
// either locally (just produced) or from gossip. It validates the block,
// decides whether it extends the tip, belongs to a side branch, or is an
// orphan awaiting its parent, and — for tip extensions and branches that
// overtake the tip — applies it and drains anything it unblocks.
//
// Returns true if the block was applied to the main chain (the caller
// should rebroadcast and persist), false if it was buffered as a side
// branch or orphan (nothing to rebroadcast yet).
func (l *Ledger) AppendBlock(block *Block) (applied bool, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	hash := HashHeader(&block.Header)
	if _, exists := l.byHash[hash]; exists {
		return false, nil
	}

	tip := l.byHeight[l.tipHeight]
	tipHash := HashHeader(&tip.Header)

	if block.Header.ParentID == tipHash {
		if err := l.applyToTip(block); err != nil {
			return false, err
		}
		l.drainPending()
		return true, nil
	}

	parent, knownParent := l.byHash[block.Header.ParentID]
	if !knownParent {
		l.orphans[block.Header.ParentID] = append(l.orphans[block.Header.ParentID], block)
		l.byHash[hash] = block
		return false, chainerr.New(chainerr.MissingParent, "parent not yet known")
	}

	if err := validateBlockHeader(block, parent, l.validators); err != nil {
		return false, err
	}
	l.byHash[hash] = block
	l.sideBranches[block.Header.ParentID] = append(l.sideBranches[block.Header.ParentID], block)

	if block.Header.Height > tip.Header.Height {
		if err := l.reorganizeTo(block); err != nil {
			return false, err
		}
		l.drainPending()
		return true, nil
	}
	return false, nil
}

// applyToTip validates block against the live state and, on success,
// appends it to the main chain and records a reversible journal entry.
func (l *Ledger) applyToTip(block *Block) error {
	tip := l.byHeight[l.tipHeight]
	if err := validateBlockHeader(block, tip, l.validators); err != nil {
		return err
	}

	s, effects := l.trackedSnapshot()
	if err := validateBlockBody(block, s); err != nil {
		return err
	}

	l.accounts = s.accounts
	l.validators = s.validators
	for _, tx := range block.Transactions {
		if tx.Kind == KindReward {
			l.mintedReward += tx.Amount
			effects.mintedReward += tx.Amount
		}
		l.pool.Remove(tx.ID)
	}
	if v, ok := l.validators[block.Header.Proposer]; ok {
		v.LastProducedHeight = block.Header.Height
		v.BlocksProduced++
	}

	l.byHeight[block.Header.Height] = block
	l.tipHeight = block.Header.Height
	l.byHash[HashHeader(&block.Header)] = block
	l.journal[block.Header.Height] = *effects
	return nil
}

// trackedSnapshot clones the live state and returns a preimage-recording
// wrapper alongside it, covering every account/validator the block might
// touch: those already on record, and any it creates fresh.
func (l *Ledger) trackedSnapshot() (*state, *blockEffects) {
	return newTrackedState(l.snapshotState())
}

// newTrackedState wraps a clone of base so that every account/validator
// it already holds gets its pre-mutation value captured up front, and
// every one created fresh through state.account/registerOrUpdateValidator
// during validation gets its absence recorded (nil preimage) the moment
// it is created, not just what existed before trackedSnapshot ran. Both
// together are enough for rewindTo to undo the block later, including a
// block's first-ever transfer to a brand-new address or a validator's
// first stake.
func newTrackedState(base *state) (*state, *blockEffects) {
	effects := &blockEffects{
		accountPreimages:   make(map[string]*Account),
		validatorPreimages: make(map[string]*Validator),
	}
	tracked := newState(base.params)
	for addr, a := range base.accounts {
		copyAccount := *a
		tracked.accounts[addr] = &copyAccount
		preCopy := copyAccount
		effects.accountPreimages[addr] = &preCopy
	}
	for addr, v := range base.validators {
		copyValidator := *v
		tracked.validators[addr] = &copyValidator
		preCopy := copyValidator
		effects.validatorPreimages[addr] = &preCopy
	}
	tracked.onNewAccount = func(addr string) {
		if _, recorded := effects.accountPreimages[addr]; !recorded {
			effects.accountPreimages[addr] = nil
		}
	}
	tracked.onNewValidator = func(addr string) {
		if _, recorded := effects.validatorPreimages[addr]; !recorded {
			effects.validatorPreimages[addr] = nil
		}
	}
	return tracked, effects
}

// reorganizeTo switches the main chain to the branch ending at
// candidate, which must have greater height than the current tip.
// Accounts and validators are rewound to the common ancestor using the
// journal, then the branch's blocks are re-applied in order.
func (l *Ledger) reorganizeTo(candidate *Block) error {
	branch := l.collectBranch(candidate)
	if len(branch) == 0 {
		return chainerr.New(chainerr.InvalidParent, "empty candidate branch")
	}

	commonAncestorHeight := branch[0].Header.Height - 1
	if _, ok := l.byHeight[commonAncestorHeight]; !ok {
		return chainerr.New(chainerr.InvalidHeight, "branch does not fork from a known ancestor")
	}

	// Keep what rewindTo discards, so a failed branch leaves the main chain as it was.
	prev := l.snapshotState()
	prevTip, prevMinted := l.tipHeight, l.mintedReward
	prevBlocks := make(map[uint64]*Block)
	prevJournal := make(map[uint64]blockEffects)
	for h := commonAncestorHeight + 1; h <= prevTip; h++ {
		if pb, ok := l.byHeight[h]; ok {
			prevBlocks[h], prevJournal[h] = pb, l.journal[h]
		}
	}

	orphanedTxs := l.rewindTo(commonAncestorHeight)

	s := l.snapshotState()
	journalEntries := make(map[uint64]*blockEffects, len(branch))
	for _, b := range branch {
		tracked, effects := newTrackedState(s)
		if err := validateBlockBody(b, tracked); err != nil {
			l.accounts, l.validators = prev.accounts, prev.validators
			l.tipHeight, l.mintedReward = prevTip, prevMinted
			for h, pb := range prevBlocks {
				l.byHeight[h], l.journal[h] = pb, prevJournal[h]
			}
			return err
		}
		for _, tx := range b.Transactions {
			if tx.Kind == KindReward {
				effects.mintedReward += tx.Amount
			}
		}
		journalEntries[b.Header.Height] = effects
		s = tracked
	}

	l.accounts = s.accounts
	l.validators = s.validators

	includedTxIDs := make(map[string]bool)
	for _, b := range branch {
		effects := journalEntries[b.Header.Height]
		l.mintedReward += effects.mintedReward
		for _, tx := range b.Transactions {
			includedTxIDs[tx.ID] = true
		}
		l.byHeight[b.Header.Height] = b
		l.tipHeight = b.Header.Height
		l.byHash[HashHeader(&b.Header)] = b
		l.journal[b.Header.Height] = *effects
	}
	for _, b := range branch {
		for _, tx := range b.Transactions {
			l.pool.Remove(tx.ID)
		}
	}

	// Transactions the old chain carried that the new chain didn't
	// re-include go back into the pool so they get another chance,
	// rather than silently vanishing from under their senders.
	for _, tx := range orphanedTxs {
		if includedTxIDs[tx.ID] {
			continue
		}
		_ = l.pool.Insert(tx)
	}
	return nil
}

// collectBranch walks backward from tip through byHash until it reaches
// a block that is already part of the main chain (or genesis), returning
// the branch blocks oldest-first.
func (l *Ledger) collectBranch(tip *Block) []*Block {
	var branch []*Block
	cur := tip
	for {
		branch = append([]*Block{cur}, branch...)
		if _, ok := l.mainChainBlock(cur.Header.ParentID); ok {
			return branch
		}
		parent, ok := l.byHash[cur.Header.ParentID]
		if !ok {
			return nil
		}
		cur = parent
	}
}

// mainChainBlock reports whether hash names a block that is currently
// on the main chain, i.e. it is the block recorded at its own height.
func (l *Ledger) mainChainBlock(hash string) (*Block, bool) {
	b, ok := l.byHash[hash]
	if !ok {
		return nil, false
	}
	onChain, ok := l.byHeight[b.Header.Height]
	if !ok || HashHeader(&onChain.Header) != hash {
		return nil, false
	}
	return b, true
}

// rewindTo undoes every main-chain block above height by replaying the
// journal in reverse, restoring account/validator preimages. Returns
// every transaction that was included in a rewound block, so the caller
// can decide which ones still belong in the pool.
func (l *Ledger) rewindTo(height uint64) []Transaction {
	var orphaned []Transaction
	for h := l.tipHeight; h > height; h-- {
		block, ok := l.byHeight[h]
		if !ok {
			continue
		}
		effects := l.journal[h]
		for addr, pre := range effects.accountPreimages {
			if pre == nil {
				delete(l.accounts, addr)
				continue
			}
			preCopy := *pre
			l.accounts[addr] = &preCopy
		}
		for addr, pre := range effects.validatorPreimages {
			if pre == nil {
				delete(l.validators, addr)
				continue
			}
			preCopy := *pre
			l.validators[addr] = &preCopy
		}
		l.mintedReward -= effects.mintedReward
		for _, tx := range block.Transactions {
			if tx.Kind != KindReward {
				orphaned = append(orphaned, tx)
			}
		}
		delete(l.byHeight, h)
		delete(l.journal, h)
	}
	l.tipHeight = height
	return orphaned
}

// drainPending retries the buffered orphan and side-branch blocks whose
// parent is the current tip, repeating as long as the tip keeps moving,
// the way the teacher's tryConnectOrphans sweeps its orphan pool after
// each accepted block.
func (l *Ledger) drainPending() {
	progressed := true
	for progressed {
		progressed = false
		tipHash := HashHeader(&l.byHeight[l.tipHeight].Header)

		if waiting, ok := l.orphans[tipHash]; ok {
			delete(l.orphans, tipHash)
			for _, b := range waiting {
				if err := l.applyOrBranch(b); err == nil {
					progressed = true
				}
			}
		}
		if waiting, ok := l.sideBranches[tipHash]; ok {
			delete(l.sideBranches, tipHash)
			for _, b := range waiting {
				if err := l.applyOrBranch(b); err == nil {
					progressed = true
				}
			}
		}
	}
}

// applyOrBranch re-attempts a previously buffered block without
// recursing back into AppendBlock's locking.
func (l *Ledger) applyOrBranch(block *Block) error {
	tip := l.byHeight[l.tipHeight]
	tipHash := HashHeader(&tip.Header)
	if block.Header.ParentID != tipHash {
		return chainerr.New(chainerr.InvalidParent, "no longer extends tip")
	}
	return l.applyToTip(block)
}

// OrphanCount reports the number of blocks buffered awaiting a missing
// parent, for diagnostics and tests.
func (l *Ledger) OrphanCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for _, v := range l.orphans {
		n += len(v)
	}
	return n
}
