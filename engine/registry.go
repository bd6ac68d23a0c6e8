package engine

// ValidatorRegistry is the sole source of voting weight. Records survive
// deregistration so identities stay resolvable; the active vector plus the
// id -> slot map gives O(1) swap-remove and cheap enumeration for the
// total-stake denominator.
type ValidatorRegistry struct {
	minimalStake uint64

	records map[string]*Validator

	active []string
	slots  map[string]int
}

func NewValidatorRegistry(minimalStake uint64) *ValidatorRegistry {
	return &ValidatorRegistry{
		minimalStake: minimalStake,
		records:      make(map[string]*Validator),
		slots:        make(map[string]int),
	}
}

func (registry *ValidatorRegistry) Register(id string, stake uint64, validatorUrl, wssValidatorUrl string) (*Validator, error) {

	if stake < registry.minimalStake {
		return nil, ErrInsufficientStake
	}

	if existing, ok := registry.records[id]; ok && existing.Active {
		return nil, ErrAlreadyRegistered
	}

	record, ok := registry.records[id]

	if !ok {
		record = &Validator{Id: id}
		registry.records[id] = record
	}

	record.Stake = stake
	record.Active = true
	record.ValidatorUrl = validatorUrl
	record.WssValidatorUrl = wssValidatorUrl

	registry.slots[id] = len(registry.active)
	registry.active = append(registry.active, id)

	return record, nil
}

func (registry *ValidatorRegistry) Deregister(id string) (*Validator, error) {

	record, ok := registry.records[id]

	if !ok || !record.Active {
		return nil, ErrNotRegistered
	}

	record.Active = false
	record.Stake = 0

	registry.removeFromActiveSet(id)

	return record, nil
}

func (registry *ValidatorRegistry) AddStake(id string, amount uint64) (*Validator, error) {

	record, ok := registry.records[id]

	if !ok || !record.Active {
		return nil, ErrNotRegistered
	}

	increased, err := safeAddStake(record.Stake, amount)

	if err != nil {
		return nil, err
	}

	record.Stake = increased

	return record, nil
}

// Slash subtracts min(amount, currentStake). A validator left below the
// registry minimum is deactivated automatically and leaves the active set;
// the residual stake stays on the record for external settlement.
func (registry *ValidatorRegistry) Slash(id string, amount uint64, reason string) (*Validator, SlashOutcome, error) {

	record, ok := registry.records[id]

	if !ok {
		return nil, SlashOutcome{}, ErrNotRegistered
	}

	slashed := amount

	if slashed > record.Stake {
		slashed = record.Stake
	}

	record.Stake -= slashed

	outcome := SlashOutcome{
		ValidatorId:    id,
		SlashedAmount:  slashed,
		RemainingStake: record.Stake,
		Reason:         reason,
	}

	if record.Active && record.Stake < registry.minimalStake {

		record.Active = false

		registry.removeFromActiveSet(id)

		outcome.Deactivated = true

	}

	return record, outcome, nil
}

// TotalActiveStake is the quorum denominator. Recomputed on demand: the
// active set is small and a cached counter is one more thing to desync.
func (registry *ValidatorRegistry) TotalActiveStake() uint64 {

	var total uint64

	for _, id := range registry.active {
		total += registry.records[id].Stake
	}

	return total
}

// EffectiveStake is the weight a validator contributes to response groups
// right now: zero for anyone outside the active set.
func (registry *ValidatorRegistry) EffectiveStake(id string) uint64 {

	record, ok := registry.records[id]

	if !ok || !record.Active {
		return 0
	}

	return record.Stake
}

func (registry *ValidatorRegistry) Get(id string) (Validator, bool) {

	record, ok := registry.records[id]

	if !ok {
		return Validator{}, false
	}

	return *record, true
}

func (registry *ValidatorRegistry) ActiveValidators() []Validator {

	validators := make([]Validator, 0, len(registry.active))

	for _, id := range registry.active {
		validators = append(validators, *registry.records[id])
	}

	return validators
}

func (registry *ValidatorRegistry) AllValidators() []Validator {

	validators := make([]Validator, 0, len(registry.records))

	for _, id := range registry.active {
		validators = append(validators, *registry.records[id])
	}

	for id, record := range registry.records {
		if _, isActive := registry.slots[id]; !isActive {
			validators = append(validators, *record)
		}
	}

	return validators
}

func (registry *ValidatorRegistry) ActiveCount() int {
	return len(registry.active)
}

// removeFromActiveSet swaps the last element into the vacated slot and
// re-indexes it, keeping removal O(1).
func (registry *ValidatorRegistry) removeFromActiveSet(id string) {

	slot, ok := registry.slots[id]

	if !ok {
		return
	}

	lastIndex := len(registry.active) - 1
	movedId := registry.active[lastIndex]

	registry.active[slot] = movedId
	registry.slots[movedId] = slot

	registry.active = registry.active[:lastIndex]

	delete(registry.slots, id)
}

func safeAddStake(current, amount uint64) (uint64, error) {

	sum := current + amount

	if sum < current {
		return 0, ErrStakeOverflow
	}

	return sum, nil
}
