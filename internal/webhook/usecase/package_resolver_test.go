package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/allisson/webhook-ledger/internal/webhook/domain"
)

func TestNewPackageResolver(t *testing.T) {
	t.Run("empty mapping uses defaults", func(t *testing.T) {
		resolver := NewPackageResolver("", discardLogger())
		assert.Equal(t, defaultPackageMap(), resolver.packageMap)
	})

	t.Run("custom mapping normalizes keys and coerces values", func(t *testing.T) {
		resolver := NewPackageResolver(`{"vip_10": 10, "group_3": "3", "bad": -1, "junk": "x"}`, discardLogger())
		assert.Equal(t, map[string]int{"VIP_10": 10, "GROUP_3": 3}, resolver.packageMap)
	})

	t.Run("malformed mapping falls back to defaults", func(t *testing.T) {
		resolver := NewPackageResolver(`not-json`, discardLogger())
		assert.Equal(t, defaultPackageMap(), resolver.packageMap)
	})

	t.Run("non-object mapping falls back to defaults", func(t *testing.T) {
		resolver := NewPackageResolver(`[1,2,3]`, discardLogger())
		assert.Equal(t, defaultPackageMap(), resolver.packageMap)
	})
}

func TestPackageResolver_Resolve(t *testing.T) {
	resolver := NewPackageResolver("", discardLogger())

	t.Run("mapped code from order reference id", func(t *testing.T) {
		order := &domain.Order{ReferenceID: "booking group-4 friday"}

		ctx := resolver.Resolve(order, &domain.Payment{})
		assert.Equal(t, domain.PackageContext{PackageCode: "GROUP_4", PartySize: 4}, ctx)
	})

	t.Run("unmapped code keeps code and flags it", func(t *testing.T) {
		order := &domain.Order{ReferenceID: "GROUP_12"}

		ctx := resolver.Resolve(order, &domain.Payment{})
		assert.Equal(t, "GROUP_12", ctx.PackageCode)
		assert.Equal(t, 12, ctx.PartySize)
		assert.Equal(t, domain.NotePackageCodeNotInMap, ctx.Note)
	})

	t.Run("line item text beats payment note", func(t *testing.T) {
		order := &domain.Order{
			LineItems: []domain.LineItem{{Name: "Sunset tour", VariationName: "GROUP_2"}},
		}
		payment := &domain.Payment{Note: "GROUP_8"}

		ctx := resolver.Resolve(order, payment)
		assert.Equal(t, "GROUP_2", ctx.PackageCode)
		assert.Equal(t, 2, ctx.PartySize)
		assert.Empty(t, ctx.Note)
	})

	t.Run("party size inferred from free text", func(t *testing.T) {
		order := &domain.Order{LineItems: []domain.LineItem{{Note: "table for 6 people"}}}

		ctx := resolver.Resolve(order, &domain.Payment{})
		assert.Equal(t, "GROUP_6", ctx.PackageCode)
		assert.Equal(t, 6, ctx.PartySize)
		assert.Equal(t, domain.NotePackageInferredFromText, ctx.Note)
	})

	t.Run("party size inferred from quantity", func(t *testing.T) {
		order := &domain.Order{LineItems: []domain.LineItem{{Name: "Boat trip", Quantity: "3"}}}

		ctx := resolver.Resolve(order, &domain.Payment{})
		assert.Equal(t, "GROUP_3", ctx.PackageCode)
		assert.Equal(t, 3, ctx.PartySize)
		assert.Equal(t, domain.NotePackageInferredFromQty, ctx.Note)
	})

	t.Run("fractional quantity is truncated", func(t *testing.T) {
		order := &domain.Order{LineItems: []domain.LineItem{{Name: "Boat trip", Quantity: "2.5"}}}

		ctx := resolver.Resolve(order, &domain.Payment{})
		assert.Equal(t, "GROUP_2", ctx.PackageCode)
		assert.Equal(t, 2, ctx.PartySize)
	})

	t.Run("nothing resolvable is unmapped", func(t *testing.T) {
		ctx := resolver.Resolve(nil, &domain.Payment{})
		assert.Equal(t, domain.UnmappedPackageCode, ctx.PackageCode)
		assert.Zero(t, ctx.PartySize)
		assert.Equal(t, domain.NoteUnmappedPackage, ctx.Note)
	})
}
