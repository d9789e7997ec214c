package model

type Candidate struct {
	BaseModel
	CandidateId string `gorm:"column:candidate_id;uniqueIndex" json:"candidateId"`
	Email       string `gorm:"column:email;uniqueIndex" json:"email"`
	Name        string `gorm:"column:name" json:"name"`
}

func (c *Candidate) TableName() string {
	return "t_candidate"
}
