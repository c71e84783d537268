package disk_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamwoolhether/trxsafe/foundation/paysafe/history"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/policy"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/settings"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/whitelist"
	"github.com/adamwoolhether/trxsafe/foundation/paysafe/storage/disk"
	"github.com/adamwoolhether/trxsafe/foundation/tron/address"
)

func newSeller(t *testing.T) address.Address {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	return address.FromPublicKey(key.PublicKey)
}

func TestSettingsSurviveRestart(t *testing.T) {
	dir := t.TempDir()
	seller := newSeller(t)

	d, err := disk.New(dir)
	require.NoError(t, err)

	_, found, err := d.Load()
	require.NoError(t, err)
	assert.False(t, found)

	m, err := settings.NewManager(d, policy.Default())
	require.NoError(t, err)

	_, err = m.SetSellerAddress(seller.String(), seller.String())
	require.NoError(t, err)

	cfg := m.Snapshot()
	cfg.SellerAddress = seller
	cfg.PricePerUnit = 5_000_000
	cfg.Multiplier = 3
	_, err = m.SaveConfig(cfg)
	require.NoError(t, err)

	d, err = disk.New(dir)
	require.NoError(t, err)

	m, err = settings.NewManager(d, policy.Default())
	require.NoError(t, err)

	got := m.Snapshot()
	assert.Equal(t, seller, got.SellerAddress)
	assert.EqualValues(t, 5_000_000, got.PricePerUnit)
	assert.Equal(t, 3, got.Multiplier)
	assert.True(t, got.PriceLocked)

	tmp, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, tmp, "no temporary files are left behind")
}

func TestHistoryAndWhitelist(t *testing.T) {
	d, err := disk.New(t.TempDir())
	require.NoError(t, err)
	seller := newSeller(t)

	rec := history.New(nil, d.SaveHistory)
	require.NoError(t, rec.Save(history.Record{TxID: "aa", To: seller, Amount: 1, Status: history.StatusSuccess}))
	require.NoError(t, rec.Save(history.Record{TxID: "bb", To: seller, Amount: 2, Status: history.StatusSuccess}))

	records, err := d.History()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "bb", records[0].TxID)

	book := whitelist.New(nil, d.SaveWhitelist)
	require.NoError(t, book.Add(whitelist.Entry{Name: "shop", Address: seller, IsWhitelisted: true, CreateTime: time.Unix(1700000000, 0)}))

	entries, err := d.Whitelist()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, seller, entries[0].Address)
}

func TestCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.json"), []byte("{"), 0600))

	d, err := disk.New(dir)
	require.NoError(t, err)

	_, _, err = d.Load()
	assert.Error(t, err)
}

func TestReset(t *testing.T) {
	d, err := disk.New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, d.SaveHistory([]history.Record{{TxID: "aa"}}))
	require.NoError(t, d.Reset())

	records, err := d.History()
	require.NoError(t, err)
	assert.Empty(t, records)
}
