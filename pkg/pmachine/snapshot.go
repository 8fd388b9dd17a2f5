package pmachine

import (
	"bytes"
	"encoding/gob"

	"tps3/pkg/native"
)

// snapshotState is the gob-serializable subset of Machine the teacher's
// hibernate.go pattern (swap-file state capture around a CPU's HLT) is
// repurposed into here: a paused program's data store and registers,
// letting a host like cmd/tpsdesktop persist and resume a run across
// sessions.
type snapshotState struct {
	Dstore         [dstoreSize]native.Word
	PC, SP, MP, NP, EP int
	State          State
	PendingDelayMs int
}

// Snapshot serializes the machine's entire state to bytes.
func (m *Machine) Snapshot() ([]byte, error) {
	var buf bytes.Buffer
	s := snapshotState{
		Dstore:         m.dstore,
		PC:             m.pc,
		SP:             m.sp,
		MP:             m.mp,
		NP:             m.np,
		EP:             m.ep,
		State:          m.state,
		PendingDelayMs: m.pendingDelayMs,
	}
	if err := gob.NewEncoder(&buf).Encode(&s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Restore replaces the machine's state with a previously captured
// Snapshot. The bytecode and native registry the machine was constructed
// with are left untouched; only its runtime state is overwritten.
func (m *Machine) Restore(data []byte) error {
	var s snapshotState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return err
	}
	m.dstore = s.Dstore
	m.pc, m.sp, m.mp, m.np, m.ep = s.PC, s.SP, s.MP, s.NP, s.EP
	m.state = s.State
	m.pendingDelayMs = s.PendingDelayMs
	m.lineBuf.Reset()
	return nil
}
