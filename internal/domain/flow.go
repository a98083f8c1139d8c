package domain

// Step is the screen the account flow is currently on.
type Step string

const (
	StepPhone                Step = "phone"
	StepOtp                  Step = "otp"
	StepCompleteRegistration Step = "complete-registration"
)

// Mode selects between signing in to an existing account and creating one.
type Mode string

const (
	ModeLogin    Mode = "login"
	ModeRegister Mode = "register"
)
