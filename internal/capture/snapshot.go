package capture

import (
	"github.com/vmihailenco/msgpack/v5"

	"github.com/denisvmedia/proxide/internal/session"
)

// marshalSnapshot and unmarshalSnapshot encode a whole session.Snapshot as
// a single MessagePack value; session.Connection/session.Request need no
// wire struct of their own since every field is already a MessagePack-safe
// type (strings, []byte, time.Time, http.Header, uuid.UUID).
func marshalSnapshot(sn session.Snapshot) ([]byte, error) {
	return msgpack.Marshal(sn)
}

func unmarshalSnapshot(data []byte) (session.Snapshot, error) {
	var sn session.Snapshot
	err := msgpack.Unmarshal(data, &sn)
	return sn, err
}
