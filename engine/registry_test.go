package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegisterValidation(t *testing.T) {

	tests := []struct {
		name    string
		prepare func(t *testing.T, registry *ValidatorRegistry)
		id      string
		stake   uint64
		wantErr error
	}{
		{
			name:    "fresh registration",
			prepare: func(t *testing.T, registry *ValidatorRegistry) {},
			id:      "orion",
			stake:   150000,
		},
		{
			name:    "stake below minimum",
			prepare: func(t *testing.T, registry *ValidatorRegistry) {},
			id:      "orion",
			stake:   149999,
			wantErr: ErrInsufficientStake,
		},
		{
			name: "already active",
			prepare: func(t *testing.T, registry *ValidatorRegistry) {
				_, err := registry.Register("orion", 200000, "", "")
				require.NoError(t, err)
			},
			id:      "orion",
			stake:   300000,
			wantErr: ErrAlreadyRegistered,
		},
		{
			name: "returning after deregistration",
			prepare: func(t *testing.T, registry *ValidatorRegistry) {
				_, err := registry.Register("orion", 200000, "", "")
				require.NoError(t, err)
				_, err = registry.Deregister("orion")
				require.NoError(t, err)
			},
			id:    "orion",
			stake: 175000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {

			registry := NewValidatorRegistry(150000)

			tt.prepare(t, registry)

			validator, err := registry.Register(tt.id, tt.stake, "http://localhost:7331", "ws://localhost:9999")

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			require.True(t, validator.Active)
			require.Equal(t, tt.stake, validator.Stake)
			require.Equal(t, "http://localhost:7331", validator.ValidatorUrl)
			require.Equal(t, "ws://localhost:9999", validator.WssValidatorUrl)

		})
	}
}

func TestDeregisterSwapRemovesFromActiveSet(t *testing.T) {

	registry := NewValidatorRegistry(100)

	for _, id := range []string{"orion", "vega", "lyra"} {
		_, err := registry.Register(id, 1000, "", "")
		require.NoError(t, err)
	}

	_, err := registry.Deregister("orion")
	require.NoError(t, err)

	// the last element moved into the vacated slot
	active := registry.ActiveValidators()
	require.Len(t, active, 2)
	require.Equal(t, "lyra", active[0].Id)
	require.Equal(t, "vega", active[1].Id)

	// the record survives with zeroed stake
	orion, ok := registry.Get("orion")
	require.True(t, ok)
	require.False(t, orion.Active)
	require.Zero(t, orion.Stake)

	_, err = registry.Deregister("orion")
	require.ErrorIs(t, err, ErrNotRegistered)

	_, err = registry.Deregister("mallory")
	require.ErrorIs(t, err, ErrNotRegistered)

	_, err = registry.Deregister("vega")
	require.NoError(t, err)
	require.Equal(t, 1, registry.ActiveCount())
	require.EqualValues(t, 1000, registry.TotalActiveStake())
}

func TestAddStake(t *testing.T) {

	registry := NewValidatorRegistry(100)

	_, err := registry.Register("orion", 1000, "", "")
	require.NoError(t, err)

	validator, err := registry.AddStake("orion", 500)
	require.NoError(t, err)
	require.EqualValues(t, 1500, validator.Stake)

	_, err = registry.AddStake("mallory", 500)
	require.ErrorIs(t, err, ErrNotRegistered)

	_, err = registry.Deregister("orion")
	require.NoError(t, err)

	_, err = registry.AddStake("orion", 500)
	require.ErrorIs(t, err, ErrNotRegistered)
}

func TestAddStakeOverflowGuard(t *testing.T) {

	registry := NewValidatorRegistry(100)

	_, err := registry.Register("orion", math.MaxUint64, "", "")
	require.NoError(t, err)

	_, err = registry.AddStake("orion", 1)
	require.ErrorIs(t, err, ErrStakeOverflow)

	// the failed addition changed nothing
	orion, ok := registry.Get("orion")
	require.True(t, ok)
	require.EqualValues(t, uint64(math.MaxUint64), orion.Stake)
}

func TestSlash(t *testing.T) {

	t.Run("partial slash keeps validator active", func(t *testing.T) {

		registry := NewValidatorRegistry(100000)

		_, err := registry.Register("orion", 500000, "", "")
		require.NoError(t, err)

		_, outcome, err := registry.Slash("orion", 300000, "missed attestations")
		require.NoError(t, err)
		require.EqualValues(t, 300000, outcome.SlashedAmount)
		require.EqualValues(t, 200000, outcome.RemainingStake)
		require.False(t, outcome.Deactivated)
		require.Equal(t, "missed attestations", outcome.Reason)

		require.Equal(t, 1, registry.ActiveCount())
		require.EqualValues(t, 200000, registry.TotalActiveStake())

	})

	t.Run("slash below minimum deactivates", func(t *testing.T) {

		registry := NewValidatorRegistry(100000)

		_, err := registry.Register("orion", 500000, "", "")
		require.NoError(t, err)

		_, outcome, err := registry.Slash("orion", 450000, "double-signing")
		require.NoError(t, err)
		require.True(t, outcome.Deactivated)
		require.EqualValues(t, 50000, outcome.RemainingStake)

		// residual stake stays on the record for external settlement
		orion, ok := registry.Get("orion")
		require.True(t, ok)
		require.False(t, orion.Active)
		require.EqualValues(t, 50000, orion.Stake)

		require.Zero(t, registry.ActiveCount())
		require.Zero(t, registry.TotalActiveStake())
		require.Zero(t, registry.EffectiveStake("orion"))

	})

	t.Run("slash is capped at current stake", func(t *testing.T) {

		registry := NewValidatorRegistry(100000)

		_, err := registry.Register("orion", 500000, "", "")
		require.NoError(t, err)

		_, outcome, err := registry.Slash("orion", 2000000, "double-signing")
		require.NoError(t, err)
		require.EqualValues(t, 500000, outcome.SlashedAmount)
		require.Zero(t, outcome.RemainingStake)
		require.True(t, outcome.Deactivated)

	})

	t.Run("slashing an inactive record", func(t *testing.T) {

		registry := NewValidatorRegistry(100000)

		_, err := registry.Register("orion", 500000, "", "")
		require.NoError(t, err)

		_, _, err = registry.Slash("orion", 450000, "double-signing")
		require.NoError(t, err)

		// already out of the active set, only the residual shrinks
		_, outcome, err := registry.Slash("orion", 30000, "follow-up penalty")
		require.NoError(t, err)
		require.False(t, outcome.Deactivated)
		require.EqualValues(t, 20000, outcome.RemainingStake)

	})

	t.Run("unknown validator", func(t *testing.T) {

		registry := NewValidatorRegistry(100000)

		_, _, err := registry.Slash("mallory", 1, "no such record")
		require.ErrorIs(t, err, ErrNotRegistered)

	})
}

func TestTotalAndEffectiveStake(t *testing.T) {

	registry := NewValidatorRegistry(100)

	_, err := registry.Register("orion", 1000, "", "")
	require.NoError(t, err)
	_, err = registry.Register("vega", 2500, "", "")
	require.NoError(t, err)

	require.EqualValues(t, 3500, registry.TotalActiveStake())
	require.EqualValues(t, 1000, registry.EffectiveStake("orion"))
	require.Zero(t, registry.EffectiveStake("mallory"))

	_, err = registry.Deregister("orion")
	require.NoError(t, err)

	require.EqualValues(t, 2500, registry.TotalActiveStake())
	require.Zero(t, registry.EffectiveStake("orion"))
}
