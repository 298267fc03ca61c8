package tsstore

import (
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

func TestMemStore_InitialSkewIsZero(t *testing.T) {
	t.Parallel()
	clk := clockwork.NewFakeClock()
	s := NewMemStore(clk)
	tx, rx := s.Snapshot()
	require.Equal(t, tx, rx)
}

func TestMemStore_RecordTX_OnlyUpdatesTX(t *testing.T) {
	t.Parallel()
	clk := clockwork.NewFakeClock()
	s := NewMemStore(clk)
	_, rxBefore := s.Snapshot()

	s.RecordTX(rxBefore + 1000)

	tx, rx := s.Snapshot()
	require.Equal(t, rxBefore+1000, tx)
	require.Equal(t, rxBefore, rx)
}

func TestMemStore_RecordRX_ResetsTX(t *testing.T) {
	t.Parallel()
	clk := clockwork.NewFakeClock()
	s := NewMemStore(clk)

	s.RecordTX(1)
	s.RecordRX(500)

	tx, rx := s.Snapshot()
	require.Equal(t, uint64(500), tx)
	require.Equal(t, uint64(500), rx)
}

func TestMemStore_ConcurrentWrites_StayWithinWrittenRange(t *testing.T) {
	t.Parallel()
	clk := clockwork.NewFakeClock()
	s := NewMemStore(clk)

	const n = 1000
	done := make(chan struct{})
	go func() {
		for i := uint64(1); i <= n; i++ {
			s.RecordTX(i)
		}
		close(done)
	}()
	for i := uint64(1); i <= n; i++ {
		s.RecordRX(i)
	}
	<-done

	tx, rx := s.Snapshot()
	require.LessOrEqual(t, tx, uint64(n))
	require.LessOrEqual(t, rx, uint64(n))
}
