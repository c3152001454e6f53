package fstore

import (
	"encoding/json"

	"github.com/ValentinKolb/dState/lib/store"
)

// document is the decoded content of a store file: one JSON object whose
// values stay encoded until they are requested.
type document map[string]json.RawMessage

// docStore implements store.IStore on top of a document held in memory.
// It is used as transaction view while migrations run and as the shared
// implementation of the single key operations of the file store.
type docStore struct {
	doc   document
	dirty bool
}

func (d *docStore) Get(key string) (any, bool, error) {
	raw, ok := d.doc[key]
	if !ok {
		return nil, false, nil
	}
	value, err := store.Decode(raw)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (d *docStore) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return store.Errorf(store.RetCInvalidValue, "value for key %q is not JSON serializable: %v", key, err)
	}
	d.doc[key] = raw
	d.dirty = true
	return nil
}

func (d *docStore) Delete(key string) error {
	if _, ok := d.doc[key]; ok {
		delete(d.doc, key)
		d.dirty = true
	}
	return nil
}

func (d *docStore) Clear() error {
	for key := range d.doc {
		if !store.IsInternalKey(key) {
			delete(d.doc, key)
			d.dirty = true
		}
	}
	return nil
}
