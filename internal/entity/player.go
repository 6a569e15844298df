package entity

type Player struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
	Mark     string `json:"mark,omitempty"`
	GameID   string `json:"game_id,omitempty"`
}

func (that *Player) Clone() *Player {
	if that == nil {
		return nil
	}

	clone := *that

	return &clone
}
