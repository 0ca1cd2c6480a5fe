package wallet

import "github.com/ethereum/go-ethereum/common"

func (s *State) requireOwner(caller common.Address) error {
	if caller != s.Owner {
		return ErrUnauthorized
	}
	return nil
}

// CheckExecute validates a forwarded call before any value moves.
func (s *State) CheckExecute(caller common.Address, data []byte) error {
	if err := s.requireOwner(caller); err != nil {
		return err
	}
	if len(data) == 0 {
		return ErrEmptyData
	}
	return nil
}

// RegisterGuardian adds account to the guardian set.
func (s *State) RegisterGuardian(caller, account common.Address) error {
	if err := s.requireOwner(caller); err != nil {
		return err
	}
	if account == (common.Address{}) {
		return ErrZeroAddress
	}
	if s.IsGuardian(account) {
		return ErrAlreadyRegistered
	}
	if s.Guardians == nil {
		s.Guardians = make(map[common.Address]struct{})
	}
	s.Guardians[account] = struct{}{}
	return nil
}

// DeregisterGuardian removes account from the guardian set.
func (s *State) DeregisterGuardian(caller, account common.Address) error {
	if err := s.requireOwner(caller); err != nil {
		return err
	}
	if !s.IsGuardian(account) {
		return ErrNotRegistered
	}
	delete(s.Guardians, account)
	return nil
}

// ChooseRecoverer records a guardian's nominee. One vote is enough and a later
// vote replaces an earlier one.
func (s *State) ChooseRecoverer(caller, candidate common.Address) error {
	if !s.IsGuardian(caller) {
		return ErrUnauthorized
	}
	if candidate == s.Owner {
		return ErrAlreadyOwner
	}
	if candidate == (common.Address{}) {
		return ErrZeroAddress
	}
	s.PendingRecoverer = &candidate
	return nil
}

// ClaimOwnership hands the wallet to the pending recoverer.
func (s *State) ClaimOwnership(caller common.Address) error {
	if s.PendingRecoverer == nil || *s.PendingRecoverer != caller {
		return ErrNotPendingRecoverer
	}
	s.Owner = caller
	s.PendingRecoverer = nil
	return nil
}

// CancelRecovery lets the owner discard a pending nomination.
func (s *State) CancelRecovery(caller common.Address) error {
	if err := s.requireOwner(caller); err != nil {
		return err
	}
	if s.PendingRecoverer == nil {
		return ErrNoPendingRecovery
	}
	s.PendingRecoverer = nil
	return nil
}
