package tod

// AssignInitial makes p the Game Master of a session that just became active.
func AssignInitial(s *Session, p PlayerID) {
	s.gameMaster = p
}

// Succeed hands authority to the earliest remaining joiner. It returns false
// and clears the Game Master when the roster is empty.
func Succeed(s *Session) (PlayerID, bool) {
	if len(s.roster) == 0 {
		s.gameMaster = ""
		return "", false
	}
	s.gameMaster = s.roster[0]
	return s.gameMaster, true
}

// IsGameMaster is the authorization guard for Game Master only operations.
func IsGameMaster(s *Session, p PlayerID) bool {
	return p != "" && s.gameMaster == p
}
