package store

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/vrmtrack/internal/retarget"
	"github.com/ayusman/vrmtrack/internal/rig"
)

var (
	// ErrInvalidProfile is returned when a profile fails validation.
	ErrInvalidProfile = errors.New("invalid profile")

	// ErrDuplicateName is returned when another profile has the same name.
	ErrDuplicateName = errors.New("profile name already exists")
)

// Profile is a named set of retargeting overrides. A nil GazeSmoothing
// keeps the configured value.
type Profile struct {
	ID            string                           `json:"id"`
	Name          string                           `json:"name"`
	GazeSmoothing *float64                         `json:"gaze_smoothing,omitempty"`
	Bones         map[rig.BoneName]retarget.Tuning `json:"bones,omitempty"`
	CreatedAt     time.Time                        `json:"created_at"`
	UpdatedAt     time.Time                        `json:"updated_at"`
}

// Validate checks names and value ranges.
func (p *Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProfile)
	}
	if g := p.GazeSmoothing; g != nil && (math.IsNaN(*g) || *g <= 0 || *g > 1) {
		return fmt.Errorf("%w: gaze smoothing %v out of (0,1]", ErrInvalidProfile, *g)
	}
	for bone, t := range p.Bones {
		if _, err := rig.ParseBoneName(string(bone)); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidProfile, err)
		}
		if math.IsNaN(t.Dampener) || math.IsInf(t.Dampener, 0) || t.Dampener < 0 {
			return fmt.Errorf("%w: %s dampener %v must be >= 0", ErrInvalidProfile, bone, t.Dampener)
		}
		if !inUnit(t.Lerp) {
			return fmt.Errorf("%w: %s lerp %v out of [0,1]", ErrInvalidProfile, bone, t.Lerp)
		}
	}
	return nil
}

func inUnit(v float64) bool {
	return v >= 0 && v <= 1
}

// Float64 returns a pointer to v, for optional profile fields.
func Float64(v float64) *float64 {
	return &v
}

// Apply layers the profile's overrides over base and returns the result.
// base is not modified.
func (p *Profile) Apply(base retarget.Options) retarget.Options {
	bones := make(map[rig.BoneName]retarget.Tuning, len(base.Bones)+len(p.Bones))
	for name, t := range base.Bones {
		bones[name] = t
	}
	for name, t := range p.Bones {
		bones[name] = t
	}
	out := retarget.Options{Bones: bones, GazeSmoothing: base.GazeSmoothing}
	if p.GazeSmoothing != nil {
		out.GazeSmoothing = *p.GazeSmoothing
	}
	return out
}

// Options converts the profile alone into engine options.
func (p *Profile) Options() retarget.Options {
	return p.Apply(retarget.Options{})
}

// ProfileRepository provides CRUD operations for profiles.
type ProfileRepository struct {
	db *sql.DB
}

// Profiles returns the profile repository for this store.
func (s *Store) Profiles() *ProfileRepository {
	return &ProfileRepository{db: s.db}
}

// Create inserts a new profile and its bone overrides. An empty ID is
// filled with a new UUID.
func (r *ProfileRepository) Create(p *Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}

	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO profiles (id, name, gaze_smoothing, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.GazeSmoothing, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return uniqueErr(err)
	}

	if err := insertBones(tx, p); err != nil {
		return err
	}

	return tx.Commit()
}

// GetByID retrieves a profile by its ID.
func (r *ProfileRepository) GetByID(id string) (*Profile, error) {
	return r.get(`WHERE id = ?`, id)
}

// GetByName retrieves a profile by its name.
func (r *ProfileRepository) GetByName(name string) (*Profile, error) {
	return r.get(`WHERE name = ?`, name)
}

func (r *ProfileRepository) get(where string, arg any) (*Profile, error) {
	p := &Profile{}

	err := r.db.QueryRow(
		`SELECT id, name, gaze_smoothing, created_at, updated_at
		 FROM profiles `+where,
		arg,
	).Scan(&p.ID, &p.Name, &p.GazeSmoothing, &p.CreatedAt, &p.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	bones, err := r.bones(p.ID)
	if err != nil {
		return nil, err
	}
	p.Bones = bones

	return p, nil
}

func (r *ProfileRepository) bones(profileID string) (map[rig.BoneName]retarget.Tuning, error) {
	rows, err := r.db.Query(
		`SELECT bone, dampener, lerp FROM profile_bones WHERE profile_id = ?`,
		profileID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bones := make(map[rig.BoneName]retarget.Tuning)
	for rows.Next() {
		var bone string
		var t retarget.Tuning
		if err := rows.Scan(&bone, &t.Dampener, &t.Lerp); err != nil {
			return nil, err
		}
		bones[rig.BoneName(bone)] = t
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return bones, nil
}

// List retrieves all profiles ordered by name.
func (r *ProfileRepository) List() ([]*Profile, error) {
	rows, err := r.db.Query(
		`SELECT id, name, gaze_smoothing, created_at, updated_at
		 FROM profiles ORDER BY name`,
	)
	if err != nil {
		return nil, err
	}

	var profiles []*Profile
	for rows.Next() {
		p := &Profile{}
		if err := rows.Scan(&p.ID, &p.Name, &p.GazeSmoothing, &p.CreatedAt, &p.UpdatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	// The store holds a single connection, so bones are read after the
	// profile rows are released.
	for _, p := range profiles {
		bones, err := r.bones(p.ID)
		if err != nil {
			return nil, err
		}
		p.Bones = bones
	}

	return profiles, nil
}

// Update replaces a profile's fields and bone overrides.
func (r *ProfileRepository) Update(p *Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	p.UpdatedAt = time.Now()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`UPDATE profiles SET name = ?, gaze_smoothing = ?, updated_at = ?
		 WHERE id = ?`,
		p.Name, p.GazeSmoothing, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return uniqueErr(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(`DELETE FROM profile_bones WHERE profile_id = ?`, p.ID); err != nil {
		return err
	}
	if err := insertBones(tx, p); err != nil {
		return err
	}

	return tx.Commit()
}

// Delete removes a profile and its bone overrides.
func (r *ProfileRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func insertBones(tx *sql.Tx, p *Profile) error {
	if len(p.Bones) == 0 {
		return nil
	}

	stmt, err := tx.Prepare(`INSERT INTO profile_bones (profile_id, bone, dampener, lerp) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	names := make([]string, 0, len(p.Bones))
	for name := range p.Bones {
		names = append(names, string(name))
	}
	sort.Strings(names)

	for _, name := range names {
		t := p.Bones[rig.BoneName(name)]
		if _, err := stmt.Exec(p.ID, name, t.Dampener, t.Lerp); err != nil {
			return err
		}
	}
	return nil
}

func uniqueErr(err error) error {
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %v", ErrDuplicateName, err)
	}
	return err
}
