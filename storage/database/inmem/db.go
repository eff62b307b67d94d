package inmemdb

import (
	"context"
	"sync"

	"github.com/erasmushub/erasmushub/core"
	"github.com/erasmushub/erasmushub/core/announcement"
	"github.com/erasmushub/erasmushub/core/application"
	"github.com/erasmushub/erasmushub/core/comment"
	"github.com/erasmushub/erasmushub/core/document"
	"github.com/erasmushub/erasmushub/core/message"
	"github.com/erasmushub/erasmushub/core/user"
)

type tables struct {
	users         map[string]user.User // by email
	applications  map[string]application.Application
	documents     map[int64]document.Document
	comments      map[int64]comment.Comment
	announcements map[string]announcement.Announcement
	messages      map[string]message.Message

	userPK, documentPK, commentPK int64
}

func newTables() tables {
	return tables{
		users:         make(map[string]user.User),
		applications:  make(map[string]application.Application),
		documents:     make(map[int64]document.Document),
		comments:      make(map[int64]comment.Comment),
		announcements: make(map[string]announcement.Announcement),
		messages:      make(map[string]message.Message),
	}
}

func (t tables) clone() tables {
	c := tables{
		users:         make(map[string]user.User, len(t.users)),
		applications:  make(map[string]application.Application, len(t.applications)),
		documents:     make(map[int64]document.Document, len(t.documents)),
		comments:      make(map[int64]comment.Comment, len(t.comments)),
		announcements: make(map[string]announcement.Announcement, len(t.announcements)),
		messages:      make(map[string]message.Message, len(t.messages)),
		userPK:        t.userPK,
		documentPK:    t.documentPK,
		commentPK:     t.commentPK,
	}
	for k, v := range t.users {
		c.users[k] = v
	}
	for k, v := range t.applications {
		c.applications[k] = v
	}
	for k, v := range t.documents {
		c.documents[k] = v
	}
	for k, v := range t.comments {
		c.comments[k] = v
	}
	for k, v := range t.announcements {
		c.announcements[k] = v
	}
	for k, v := range t.messages {
		c.messages[k] = v
	}
	return c
}

// DB is a process-local store holding every table behind a single lock.
type DB struct {
	mutex sync.RWMutex
	tables

	txMutex sync.Mutex
}

func Open() *DB {
	return &DB{tables: newTables()}
}

// Transactor serializes transactions and restores a snapshot of every table when fn fails.
// Writes made outside of a transaction while it runs are lost on rollback.
type Transactor struct {
	db *DB
}

var _ core.Transactor = (*Transactor)(nil)

func NewTransactor(db *DB) *Transactor {
	return &Transactor{db: db}
}

func (t *Transactor) InTx(_ context.Context, fn func(exec core.DBExecutor) error) (err error) {
	t.db.txMutex.Lock()
	defer t.db.txMutex.Unlock()

	t.db.mutex.RLock()
	snapshot := t.db.tables.clone()
	t.db.mutex.RUnlock()

	rollback := func() {
		t.db.mutex.Lock()
		t.db.tables = snapshot
		t.db.mutex.Unlock()
	}
	defer func() {
		if p := recover(); p != nil {
			rollback()
			panic(p)
		}
	}()

	if err = fn(nil); err != nil {
		rollback()
	}
	return err
}
