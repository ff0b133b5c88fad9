// Package demo wires a small layered application: settings, a logger, an
// in-memory database, a request-scoped unit of work, generic repositories,
// a collection of notifiers and a user service. The CLI and end-to-end
// tests resolve it through grove.
package demo

import (
	stderrors "errors"
	"fmt"
	"os"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ARTM2000/grove"
)

// ErrNotFound is returned by repositories for unknown ids.
var ErrNotFound = errors.New("record not found")

// ---------------------------------------------------------------------------
// Domain types
// ---------------------------------------------------------------------------

type User struct {
	ID    int
	Name  string
	Email string
}

type Order struct {
	ID     int
	UserID int
	Total  int
}

type Settings struct {
	DatabaseURL string
	Sender      string
}

// Logger is the application logger, a thin wrapper over the host's logrus
// logger.
type Logger struct {
	logrus.FieldLogger
}

// Database is an in-memory table store shared by the whole application.
type Database struct {
	URL     string
	Queries atomic.Int64

	log    *Logger
	mu     sync.RWMutex
	tables map[string]map[int]any
	closed bool
}

func (db *Database) find(table string, id int) (any, bool) {
	db.Queries.Add(1)
	db.mu.RLock()
	defer db.mu.RUnlock()
	row, ok := db.tables[table][id]
	return row, ok
}

func (db *Database) insert(table string, id int, row any) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.tables[table] == nil {
		db.tables[table] = make(map[int]any)
	}
	db.tables[table][id] = row
}

// Close marks the database closed.
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return errors.New("database already closed")
	}
	db.closed = true
	db.log.WithField("url", db.URL).Info("database closed")
	return nil
}

// UnitOfWork tracks the work done while handling one request. It is rolled
// back on Close unless committed.
type UnitOfWork struct {
	ID string

	db         *Database
	log        *Logger
	committed  bool
	rolledBack bool
}

func (u *UnitOfWork) Commit() { u.committed = true }

func (u *UnitOfWork) Committed() bool { return u.committed }

func (u *UnitOfWork) RolledBack() bool { return u.rolledBack }

// Close rolls back uncommitted work.
func (u *UnitOfWork) Close() error {
	if !u.committed {
		u.rolledBack = true
		u.log.WithField("uow", u.ID).Info("rolled back")
	}
	return nil
}

// Repository loads records of type T.
type Repository[T any] interface {
	Find(id int) (T, error)
}

type tableRepository[T any] struct {
	uow   *UnitOfWork
	table string
}

func newTableRepository[T any](uow *UnitOfWork) *tableRepository[T] {
	return &tableRepository[T]{uow: uow, table: reflect.TypeFor[T]().Name()}
}

func (r *tableRepository[T]) Find(id int) (T, error) {
	var zero T
	row, ok := r.uow.db.find(r.table, id)
	if !ok {
		return zero, errors.Wrapf(ErrNotFound, "%s %d", r.table, id)
	}
	return row.(T), nil
}

// Notifier tells a user about something.
type Notifier interface {
	Notify(u User, msg string) string
}

type emailNotifier struct {
	sender string
}

func (n *emailNotifier) Notify(u User, msg string) string {
	return fmt.Sprintf("email from %s to %s: %s", n.sender, u.Email, msg)
}

type auditNotifier struct {
	log *Logger
}

func (n *auditNotifier) Notify(u User, msg string) string {
	n.log.WithField("user", u.ID).Info(msg)
	return fmt.Sprintf("audit: user %d: %s", u.ID, msg)
}

// UserService is the application's entry point.
type UserService struct {
	users     Repository[User]
	orders    Repository[Order]
	notifiers []Notifier
	uow       *UnitOfWork
}

// Welcome notifies user id through every notifier and commits the unit of
// work. The returned lines are the notifiers' outputs.
func (s *UserService) Welcome(id int) ([]string, error) {
	u, err := s.users.Find(id)
	if err != nil {
		return nil, err
	}

	msg := "welcome, " + u.Name
	if o, err := s.orders.Find(id); err == nil {
		msg = fmt.Sprintf("%s (last order total %d)", msg, o.Total)
	}

	out := make([]string, 0, len(s.notifiers))
	for _, n := range s.notifiers {
		out = append(out, n.Notify(u, msg))
	}
	s.uow.Commit()
	return out, nil
}

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

func NewSettings() *Settings {
	return &Settings{
		DatabaseURL: env("DEMO_DATABASE_URL", "memory://demo"),
		Sender:      env("DEMO_SENDER", "noreply@grove.dev"),
	}
}

func NewLogger(base logrus.FieldLogger) *Logger {
	return &Logger{FieldLogger: base.WithField("app", "demo")}
}

func NewDatabase(s *Settings, l *Logger) (*Database, error) {
	if s.DatabaseURL == "" {
		return nil, errors.New("database url is empty")
	}
	db := &Database{URL: s.DatabaseURL, log: l, tables: make(map[string]map[int]any)}
	db.insert("User", 1, User{ID: 1, Name: "Ada", Email: "ada@example.com"})
	db.insert("User", 2, User{ID: 2, Name: "Linus", Email: "linus@example.com"})
	db.insert("Order", 1, Order{ID: 1, UserID: 1, Total: 42})
	return db, nil
}

var uowSeq atomic.Int64

func NewUnitOfWork(db *Database, l *Logger) *UnitOfWork {
	return &UnitOfWork{ID: fmt.Sprintf("uow-%d", uowSeq.Add(1)), db: db, log: l}
}

func NewUserService(users Repository[User], orders Repository[Order], notifiers []Notifier, uow *UnitOfWork) *UserService {
	return &UserService{users: users, orders: orders, notifiers: notifiers, uow: uow}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// ---------------------------------------------------------------------------
// Wiring
// ---------------------------------------------------------------------------

// Register adds the application's services to services. log becomes the
// base of the application logger.
func Register(services *grove.ServiceCollection, log logrus.FieldLogger) error {
	if err := grove.AddValue(services, log); err != nil {
		return err
	}

	steps := []struct {
		ctor any
		opts []grove.Option
	}{
		{NewSettings, nil},
		{NewLogger, nil},
		{NewDatabase, nil},
		{NewUnitOfWork, []grove.Option{grove.WithLifetime(grove.Scoped)}},
		{NewUserService, []grove.Option{grove.WithLifetime(grove.Transient)}},
	}
	for _, s := range steps {
		if err := services.Register(s.ctor, s.opts...); err != nil {
			return errors.Wrapf(err, "registering %T", s.ctor)
		}
	}

	ctors := services.Constructors()
	for _, fn := range []any{
		newTableRepository[User],
		newTableRepository[Order],
		func(s *Settings) *emailNotifier { return &emailNotifier{sender: s.Sender} },
		func(l *Logger) *auditNotifier { return &auditNotifier{log: l} },
	} {
		if _, err := ctors.Register(fn); err != nil {
			return err
		}
	}

	err := services.AddOpenGeneric(reflect.TypeFor[Repository[any]](), reflect.TypeFor[*tableRepository[any]](), grove.Scoped)
	if err != nil {
		return err
	}

	notifier := reflect.TypeFor[Notifier]()
	for _, impl := range []reflect.Type{reflect.TypeFor[*emailNotifier](), reflect.TypeFor[*auditNotifier]()} {
		d, err := grove.NewTypeDescriptor(notifier, impl, grove.Singleton)
		if err != nil {
			return err
		}
		if err := services.AddEnumerable(d); err != nil {
			return err
		}
	}
	return nil
}

// Run welcomes user id inside a fresh scope of root. Errors closing the
// scope are joined into the result.
func Run(root *grove.Provider, id int) (out []string, err error) {
	scope, err := root.CreateScope()
	if err != nil {
		return nil, err
	}
	defer func() {
		if derr := scope.Dispose(); derr != nil {
			err = stderrors.Join(err, errors.Wrap(derr, "disposing scope"))
		}
	}()

	return Welcome(scope, id)
}

// Welcome resolves the user service from scope and welcomes user id.
func Welcome(scope grove.ServiceProvider, id int) ([]string, error) {
	svc, err := grove.GetRequiredService[*UserService](scope)
	if err != nil {
		return nil, err
	}
	return svc.Welcome(id)
}
