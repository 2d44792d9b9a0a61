/*
 * SPDX-License-Identifier: Apache-2.0
 * Copyright 2021 The LibreGraph Authors.
 */

// Package snapshot stores named copies of cn=config entries in a local BoltDB
// database. Some implementation details:
//
// The database contains two top level buckets
//
//   - snapshots: contains one nested bucket per snapshot name. The nested
//     bucket maps the normalized (case-folded) DN of an entry to the GOB
//     encoded ldap.Entry.
//
//   - meta: maps the snapshot name to its creation time (RFC 3339).
package snapshot

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"

	"github.com/libregraph/dsconf/pkg/ldapdn"
)

var (
	ErrSnapshotExists   = errors.New("snapshot already exists")
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

var (
	bucketSnapshots = []byte("snapshots")
	bucketMeta      = []byte("meta")
)

// Info describes a stored snapshot.
type Info struct {
	Name    string
	Created time.Time
	Entries int
}

type Store struct {
	logger  logrus.FieldLogger
	db      *bolt.DB
	options *bolt.Options
}

// Open opens (or creates) the database file.
func Open(logger logrus.FieldLogger, dbfile string, options *bolt.Options) (*Store, error) {
	logger.Debugf("Open boltdb %s", dbfile)
	db, err := bolt.Open(dbfile, 0o600, options)
	if err != nil {
		logger.WithError(err).Error("Error opening database")
		return nil, err
	}
	return &Store{
		logger:  logger,
		db:      db,
		options: options,
	}, nil
}

// Initialize creates the required buckets if they do not exist yet. After
// calling Initialize the store is ready to process transactions.
func (s *Store) Initialize() error {
	if s.options != nil && s.options.ReadOnly {
		return nil
	}
	s.logger.Debug("Adding default buckets")
	err := s.db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketSnapshots); err != nil {
			return fmt.Errorf("create bucket 'snapshots': %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists(bucketMeta); err != nil {
			return fmt.Errorf("create bucket 'meta': %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.WithError(err).Error("Error creating default buckets")
	}
	return err
}

// Save stores entries under name. Names are unique.
func (s *Store) Save(name string, entries []*ldap.Entry) error {
	if name == "" {
		return errors.New("snapshot name must not be empty")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		snapshots := tx.Bucket(bucketSnapshots)
		if snapshots.Bucket([]byte(name)) != nil {
			return fmt.Errorf("%w: %s", ErrSnapshotExists, name)
		}
		b, err := snapshots.CreateBucket([]byte(name))
		if err != nil {
			return err
		}
		for _, e := range entries {
			nDN, err := ldapdn.ParseNormalize(e.DN)
			if err != nil {
				return fmt.Errorf("invalid DN '%s': %w", e.DN, err)
			}
			var buf bytes.Buffer
			if err := gob.NewEncoder(&buf).Encode(e); err != nil {
				return fmt.Errorf("error encoding entry '%s': %w", e.DN, err)
			}
			s.logger.Debugf("snapshot %s: put '%s'", name, nDN)
			if err := b.Put([]byte(nDN), buf.Bytes()); err != nil {
				return err
			}
		}
		created := time.Now().UTC().Format(time.RFC3339)
		return tx.Bucket(bucketMeta).Put([]byte(name), []byte(created))
	})
}

// Load returns the entries of a snapshot, parents before their children.
func (s *Store) Load(name string) ([]*ldap.Entry, error) {
	entries := []*ldap.Entry{}
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSnapshots).Bucket([]byte(name))
		if b == nil {
			return fmt.Errorf("%w: %s", ErrSnapshotNotFound, name)
		}
		return b.ForEach(func(k, v []byte) error {
			var entry ldap.Entry
			if err := gob.NewDecoder(bytes.NewReader(v)).Decode(&entry); err != nil {
				return fmt.Errorf("error decoding entry '%s': %w", k, err)
			}
			entries = append(entries, &entry)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	SortByDepth(entries)
	return entries, nil
}

// SortByDepth orders entries by the number of RDNs in their DN so that
// every entry comes after its parent. Entries of the same depth keep their
// order.
func SortByDepth(entries []*ldap.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return depth(entries[i].DN) < depth(entries[j].DN)
	})
}

func depth(dn string) int {
	parsed, err := ldap.ParseDN(dn)
	if err != nil {
		return 0
	}
	return len(parsed.RDNs)
}

// Get returns a single entry of a snapshot.
func (s *Store) Get(name, dn string) (*ldap.Entry, error) {
	nDN, err := ldapdn.ParseNormalize(dn)
	if err != nil {
		return nil, err
	}
	var entry *ldap.Entry
	err = s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSnapshots).Bucket([]byte(name))
		if b == nil {
			return fmt.Errorf("%w: %s", ErrSnapshotNotFound, name)
		}
		v := b.Get([]byte(nDN))
		if v == nil {
			return fmt.Errorf("entry '%s' not in snapshot %s", dn, name)
		}
		entry = &ldap.Entry{}
		return gob.NewDecoder(bytes.NewReader(v)).Decode(entry)
	})
	return entry, err
}

// List returns all snapshots sorted by name.
func (s *Store) List() ([]Info, error) {
	infos := []Info{}
	err := s.db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		return tx.Bucket(bucketSnapshots).ForEachBucket(func(k []byte) error {
			info := Info{
				Name:    string(k),
				Entries: tx.Bucket(bucketSnapshots).Bucket(k).Stats().KeyN,
			}
			if created := meta.Get(k); created != nil {
				info.Created, _ = time.Parse(time.RFC3339, string(created))
			}
			infos = append(infos, info)
			return nil
		})
	})
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})
	return infos, err
}

// Delete removes a snapshot.
func (s *Store) Delete(name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketSnapshots).DeleteBucket([]byte(name)); err != nil {
			if errors.Is(err, bolt.ErrBucketNotFound) {
				return fmt.Errorf("%w: %s", ErrSnapshotNotFound, name)
			}
			return err
		}
		return tx.Bucket(bucketMeta).Delete([]byte(name))
	})
}

func (s *Store) Close() {
	s.db.Close()
}
