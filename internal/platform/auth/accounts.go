package auth

import (
	"errors"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// Role is the coarse user role. Capabilities hang off it.
type Role string

const (
	RoleAdmin   Role = "Admin"
	RolePatient Role = "Patient"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

// Account is an allow-listed login. PatientID links a patient login to its
// patient record.
type Account struct {
	ID        string
	Role      Role
	Email     string
	Password  string
	PatientID string
}

// DemoAccounts is the fixed login allow-list.
func DemoAccounts() []Account {
	return []Account{
		{ID: "1", Role: RoleAdmin, Email: "admin@smilecare.pro", Password: "admin123"},
		{ID: "2", Role: RolePatient, Email: "john@smilecare.pro", Password: "patient123", PatientID: "p1"},
		{ID: "3", Role: RolePatient, Email: "jane@smilecare.pro", Password: "patient123", PatientID: "p2"},
	}
}

// Session describes the signed-in user.
type Session struct {
	UserID    string `json:"id"`
	Role      Role   `json:"role"`
	Email     string `json:"email"`
	PatientID string `json:"patientId,omitempty"`
}

type credential struct {
	session Session
	hash    []byte
}

// Directory checks credentials against a fixed account list. Plain-text
// passwords are hashed with bcrypt the first time the directory is used and
// then dropped.
type Directory struct {
	once     sync.Once
	accounts []Account
	cost     int
	byEmail  map[string]credential
	err      error
}

// NewDirectory builds a directory over accounts. cost is the bcrypt cost;
// zero means bcrypt.DefaultCost.
func NewDirectory(accounts []Account, cost int) *Directory {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Directory{accounts: accounts, cost: cost}
}

func (d *Directory) load() {
	d.byEmail = make(map[string]credential, len(d.accounts))
	for _, a := range d.accounts {
		hash, err := bcrypt.GenerateFromPassword([]byte(a.Password), d.cost)
		if err != nil {
			d.err = err
			return
		}
		d.byEmail[strings.ToLower(a.Email)] = credential{
			session: Session{UserID: a.ID, Role: a.Role, Email: a.Email, PatientID: a.PatientID},
			hash:    hash,
		}
	}
	d.accounts = nil
}

// Authenticate returns the session for a matching email and password.
func (d *Directory) Authenticate(email, password string) (Session, error) {
	d.once.Do(d.load)
	if d.err != nil {
		return Session{}, d.err
	}
	cred, ok := d.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return Session{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(cred.hash, []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	return cred.session, nil
}
