package remote

// Wire types of the guild-war REST API.

type User struct {
	ID             int64    `json:"id"`
	Username       string   `json:"username"`
	Region         string   `json:"region"`
	IsAdmin        bool     `json:"isAdmin"`
	PrimaryClass   []string `json:"primaryClass"`
	SecondaryClass []string `json:"secondaryClass"`
	PrimaryRole    *string  `json:"primaryRole"`
	SecondaryRole  *string  `json:"secondaryRole"`
	CreatedAt      string   `json:"createdAt,omitempty"`
}

type Signup struct {
	EventID    int64    `json:"eventId"`
	UserID     int64    `json:"userId"`
	SignedUpAt string   `json:"signedUpAt,omitempty"`
	TimeSlots  []string `json:"timeSlots"`
	Notes      *string  `json:"notes"`
	User       User     `json:"user"`
}

type TeamMember struct {
	TeamID     int64  `json:"teamId"`
	UserID     int64  `json:"userId"`
	AssignedAt string `json:"assignedAt,omitempty"`
	User       User   `json:"user"`
}

type Team struct {
	ID          int64        `json:"id"`
	EventID     int64        `json:"eventId"`
	Name        string       `json:"name"`
	Description *string      `json:"description"`
	Day         string       `json:"day"`
	CreatedAt   string       `json:"createdAt,omitempty"`
	Members     []TeamMember `json:"members"`
}

type Event struct {
	ID            int64    `json:"id"`
	Region        string   `json:"region"`
	WeekStartDate string   `json:"weekStartDate"`
	CreatedAt     string   `json:"createdAt,omitempty"`
	Signups       []Signup `json:"signups"`
	Teams         []Team   `json:"teams"`
}

type CreateTeamRequest struct {
	EventID     int64   `json:"eventId"`
	Name        string  `json:"name"`
	Day         string  `json:"day"`
	Description *string `json:"description,omitempty"`
}

type UpdateTeamRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

type SignupRequest struct {
	Username       string   `json:"username"`
	Region         string   `json:"region"`
	PrimaryClass   []string `json:"primaryClass"`
	SecondaryClass []string `json:"secondaryClass,omitempty"`
	PrimaryRole    string   `json:"primaryRole"`
	SecondaryRole  string   `json:"secondaryRole,omitempty"`
	TimeSlots      []string `json:"timeSlots"`
	Notes          string   `json:"notes,omitempty"`
}

type SignupResponse struct {
	Message string `json:"message"`
	User    User   `json:"user"`
	Event   struct {
		ID            int64  `json:"id"`
		WeekStartDate string `json:"weekStartDate"`
	} `json:"event"`
}

type CreateEventResponse struct {
	Message string `json:"message"`
	Event   Event  `json:"event"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}
