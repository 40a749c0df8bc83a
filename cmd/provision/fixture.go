package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/villagegrid/outage-alerts/internal/core/domain"
	"github.com/villagegrid/outage-alerts/internal/core/ports"
	"github.com/villagegrid/outage-alerts/internal/core/service"
)

// fixture is the provisioning file:
//
//	villages:
//	  - name: Rampur
//	    district: Sitapur
//	    state: Uttar Pradesh
//	employees:
//	  - name: Asha Devi
//	    mobile: "9876543210"
//	    password: change-me
//	    village: Rampur
type fixture struct {
	Villages  []villageEntry  `yaml:"villages"`
	Employees []employeeEntry `yaml:"employees"`
}

type villageEntry struct {
	Name     string `yaml:"name"`
	District string `yaml:"district"`
	State    string `yaml:"state"`
}

type employeeEntry struct {
	Name     string `yaml:"name"`
	Mobile   string `yaml:"mobile"`
	Password string `yaml:"password"`
	// Village names an entry of the villages list; empty is allowed.
	Village string `yaml:"village"`
}

func decodeFixture(r io.Reader) (*fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f fixture
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	return &f, nil
}

// summary counts what a provisioning run changed.
type summary struct {
	VillagesCreated  int
	VillagesExisting int
	EmployeesCreated int
	EmployeesSkipped int
}

// provisioner seeds villages and employee accounts. Re-running a fixture is
// safe: existing villages are reused and known mobiles are skipped.
type provisioner struct {
	villages *service.VillageService
	identity *service.IdentityService
	users    ports.UserRepository
	log      zerolog.Logger
}

func (p *provisioner) apply(ctx context.Context, f *fixture) (summary, error) {
	var sum summary
	byName := make(map[string]string, len(f.Villages))

	for _, ve := range f.Villages {
		v, created, err := p.villages.Ensure(ctx, ve.Name, ve.District, ve.State)
		if err != nil {
			return sum, fmt.Errorf("village %q: %w", ve.Name, err)
		}
		if created {
			sum.VillagesCreated++
		} else {
			sum.VillagesExisting++
		}
		byName[strings.ToLower(strings.TrimSpace(ve.Name))] = v.ID
		p.log.Info().Str("village_id", v.ID).Str("slug", v.Slug).Bool("created", created).Msg("village")
	}

	for _, ee := range f.Employees {
		villageID := ""
		if ee.Village != "" {
			id, ok := byName[strings.ToLower(strings.TrimSpace(ee.Village))]
			if !ok {
				return sum, fmt.Errorf("employee %q: village %q is not in the fixture", ee.Name, ee.Village)
			}
			villageID = id
		}
		u, err := p.identity.Provision(ctx, ports.RegisterInput{
			Mobile:    ee.Mobile,
			Password:  ee.Password,
			Name:      ee.Name,
			VillageID: villageID,
			Role:      string(domain.RoleEmployee),
		})
		if errors.Is(err, domain.ErrMobileTaken) {
			sum.EmployeesSkipped++
			p.log.Info().Str("mobile", ee.Mobile).Msg("employee already exists, skipped")
			continue
		}
		if err != nil {
			return sum, fmt.Errorf("employee %q: %w", ee.Name, err)
		}
		sum.EmployeesCreated++
		p.log.Info().Str("user_id", u.ID).Str("mobile", u.Mobile).Msg("employee created")
	}
	return sum, nil
}

// disable deactivates the account registered under mobile and revokes its sessions.
func (p *provisioner) disable(ctx context.Context, mobile string) error {
	m, err := domain.NormalizeMobile(mobile)
	if err != nil {
		return err
	}
	u, err := p.users.FindByMobile(ctx, m)
	if err != nil {
		return fmt.Errorf("disable %s: %w", m, err)
	}
	return p.identity.Disable(ctx, u.ID)
}
