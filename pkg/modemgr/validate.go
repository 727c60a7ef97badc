package modemgr

// alwaysAllowed are permitted in every mode (spec.md §4.5 table's "Any" row).
var alwaysAllowed = map[Action]struct{}{
	ActionGetStatus:     {},
	ActionReadLogs:      {},
	ActionGetStatistics: {},
}

var perModeAllowed = map[Mode]map[Action]struct{}{
	Monitor: {
		ActionVerifyFile: {},
		ActionListFiles:  {},
		ActionGetInfo:    {},
	},
	Init: {
		ActionAddFile:            {},
		ActionCreateBackup:       {},
		ActionInitializeBaseline: {},
	},
	Update: {
		ActionUpdateFile:   {},
		ActionModifyFile:   {},
		ActionUpdateHashes: {},
		ActionCreateBackup: {},
	},
	Emergency: {
		ActionRestoreFile:   {},
		ActionBlockFile:     {},
		ActionExitEmergency: {},
	},
}

// emergencyActions require admin verification even though they're the only
// actions Emergency mode permits at all.
var emergencyActions = perModeAllowed[Emergency]

// ValidateAction reports whether action is permitted in the current mode,
// per spec.md §4.5's action validation table. Emergency-mode actions
// additionally require admin verification.
func (m *Manager) ValidateAction(action Action, admin string) (bool, error) {
	if _, ok := alwaysAllowed[action]; ok {
		return true, nil
	}

	mode := m.GetMode()

	if mode == Emergency {
		if _, ok := emergencyActions[action]; !ok {
			return false, ErrInvalidTransition
		}
		if !m.isAdmin(admin) {
			return false, ErrNotAdmin
		}
		return true, nil
	}

	allowed, ok := perModeAllowed[mode]
	if !ok {
		return false, ErrInvalidTransition
	}
	if _, ok := allowed[action]; !ok {
		return false, ErrInvalidTransition
	}
	return true, nil
}
