package store

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-memdb"
)

const (
	usersTable = "users"

	indexID       = "id"
	indexEmail    = "email"
	indexExternal = "external"
	indexPublic   = "public"
)

func usersSchema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			usersTable: {
				Name: usersTable,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: {
						Name:    indexID,
						Unique:  true,
						Indexer: &memdb.IntFieldIndex{Field: "ID"},
					},
					indexEmail: {
						Name:         indexEmail,
						Unique:       true,
						AllowMissing: true,
						Indexer:      &memdb.StringFieldIndex{Field: "Email"},
					},
					indexExternal: {
						Name:         indexExternal,
						Unique:       true,
						AllowMissing: true,
						Indexer: &memdb.CompoundIndex{
							Indexes: []memdb.Indexer{
								&memdb.StringFieldIndex{Field: "Provider"},
								&memdb.StringFieldIndex{Field: "ExternalID"},
							},
						},
					},
					indexPublic: {
						Name:    indexPublic,
						Indexer: &memdb.BoolFieldIndex{Field: "IsPublic"},
					},
				},
			},
		},
	}
}

// MemStore implements the Store interface on top of an in-memory go-memdb database.
// Readers see consistent snapshots; writers are serialized by memdb's write lock, which
// makes the email check and the insert of Create atomic.
type MemStore struct {
	db  *memdb.MemDB
	seq *atomic.Int64
	tx  *memdb.Txn
}

// NewMemStore creates an empty store. Identities start at 1.
func NewMemStore() (*MemStore, error) {
	db, err := memdb.NewMemDB(usersSchema())
	if err != nil {
		return nil, fmt.Errorf("create memdb: %w", err)
	}

	return &MemStore{
		db:  db,
		seq: new(atomic.Int64),
	}, nil
}

// Create inserts a new user and returns its identity.
func (s *MemStore) Create(ctx context.Context, r CreateUserRequest) (int64, error) {
	var id int64
	err := s.write(func(txn *memdb.Txn) error {
		if r.Email != "" {
			taken, err := txn.First(usersTable, indexEmail, r.Email)
			if err != nil {
				return fmt.Errorf("lookup email: %w", err)
			}
			if taken != nil {
				return ErrEmailExists
			}
		}

		now := time.Now().UTC()
		id = s.seq.Add(1)
		u := &User{
			ID:         id,
			Email:      r.Email,
			Password:   r.Password,
			Name:       r.Name,
			Photo:      r.Photo,
			IsPublic:   r.IsPublic,
			IsAdmin:    r.IsAdmin,
			Provider:   r.Provider,
			ExternalID: r.ExternalID,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := txn.Insert(usersTable, u); err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return id, nil
}

// FindByID retrieves a user by identity
func (s *MemStore) FindByID(ctx context.Context, id int64) (User, error) {
	return s.first(indexID, id)
}

// FindByEmail retrieves a user by exact email
func (s *MemStore) FindByEmail(ctx context.Context, email string) (User, error) {
	if email == "" {
		return User{}, ErrNotFound
	}
	return s.first(indexEmail, email)
}

// FindByExternalID retrieves a user created from the given provider identity
func (s *MemStore) FindByExternalID(ctx context.Context, provider, externalID string) (User, error) {
	if provider == "" || externalID == "" {
		return User{}, ErrNotFound
	}
	return s.first(indexExternal, provider, externalID)
}

// Update applies fn to a copy of the user and stores the result. The identity cannot be
// changed; an email change is checked for uniqueness.
func (s *MemStore) Update(ctx context.Context, id int64, fn func(u *User) error) (User, error) {
	var updated User
	err := s.write(func(txn *memdb.Txn) error {
		raw, err := txn.First(usersTable, indexID, id)
		if err != nil {
			return fmt.Errorf("lookup user: %w", err)
		}
		if raw == nil {
			return ErrNotFound
		}

		u := *raw.(*User)
		if err := fn(&u); err != nil {
			return err
		}
		u.ID = id
		u.UpdatedAt = time.Now().UTC()

		if u.Email != "" {
			owner, err := txn.First(usersTable, indexEmail, u.Email)
			if err != nil {
				return fmt.Errorf("lookup email: %w", err)
			}
			if owner != nil && owner.(*User).ID != id {
				return ErrEmailExists
			}
		}

		if err := txn.Insert(usersTable, &u); err != nil {
			return fmt.Errorf("insert user: %w", err)
		}

		updated = u
		return nil
	})
	if err != nil {
		return User{}, err
	}

	return updated, nil
}

// ListPublic returns public users ordered by identity
func (s *MemStore) ListPublic(ctx context.Context) ([]User, error) {
	return s.list(indexPublic, true)
}

// List returns all users ordered by identity
func (s *MemStore) List(ctx context.Context) ([]User, error) {
	return s.list(indexID)
}

// WithTx runs fn with a store bound to a single write transaction. The transaction is
// committed when fn returns nil and aborted otherwise.
func (s *MemStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	if s.tx != nil {
		return errors.New("already in transaction")
	}

	txn := s.db.Txn(true)
	sx := &MemStore{db: s.db, seq: s.seq, tx: txn}
	if err := fn(sx); err != nil {
		txn.Abort()
		return fmt.Errorf("transaction: %w", err)
	}

	txn.Commit()
	return nil
}

func (s *MemStore) read() *memdb.Txn {
	if s.tx != nil {
		return s.tx
	}
	return s.db.Txn(false)
}

func (s *MemStore) write(fn func(txn *memdb.Txn) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}

	txn := s.db.Txn(true)
	if err := fn(txn); err != nil {
		txn.Abort()
		return err
	}

	txn.Commit()
	return nil
}

func (s *MemStore) first(index string, args ...any) (User, error) {
	raw, err := s.read().First(usersTable, index, args...)
	if err != nil {
		return User{}, fmt.Errorf("lookup %s: %w", index, err)
	}
	if raw == nil {
		return User{}, ErrNotFound
	}

	return *raw.(*User), nil
}

func (s *MemStore) list(index string, args ...any) ([]User, error) {
	it, err := s.read().Get(usersTable, index, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", index, err)
	}

	users := make([]User, 0)
	for raw := it.Next(); raw != nil; raw = it.Next() {
		users = append(users, *raw.(*User))
	}

	slices.SortFunc(users, func(a, b User) int {
		return cmp.Compare(a.ID, b.ID)
	})

	return users, nil
}
