package memstore

import (
	"context"

	"github.com/fastprodman/perlas-wallet/internal/repos/customers"
)

type customersView struct{ s *Store }

func (v customersView) Get(_ context.Context, userID uint64, gateway string) (customers.Mapping, error) {
	err := v.s.lock("customers.Get")
	if err != nil {
		return customers.Mapping{}, err
	}
	defer v.s.mu.Unlock()

	m, ok := v.s.st.customers[customerKey{userID, gateway}]
	if !ok {
		return customers.Mapping{}, customers.ErrCustomerNotFound
	}

	return m, nil
}

func (v customersView) Save(_ context.Context, m customers.Mapping) (customers.Mapping, error) {
	err := v.s.lock("customers.Save")
	if err != nil {
		return customers.Mapping{}, err
	}
	defer v.s.mu.Unlock()

	key := customerKey{m.UserID, m.Gateway}

	existing, ok := v.s.st.customers[key]
	if ok {
		return existing, nil
	}

	v.s.st.customers[key] = m

	return m, nil
}
