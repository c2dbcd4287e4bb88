package command

// Component identifiers recognised on the hub topic. They are matched
// case-sensitively.
const (
	ComponentLCD        = "LCD"
	ComponentLED        = "led"
	ComponentRelay      = "relay"
	ComponentBuzzer     = "buzzer"
	ComponentStepper    = "stepper_motor"
	ComponentLight      = "light"
	ComponentServo      = "servo"
	ComponentDHT11      = "DHT11"
	ComponentUltrasonic = "Ultrasonic sensor"
	ComponentPIR        = "PIR_SENSOR"
	ComponentLDR        = "LDR Sensor"
	ComponentButton     = "Button"
	ComponentKeypad     = "Keypad"

	// ComponentMonitor controls running monitors: {"action":"stop"|"stop_all", ...}.
	ComponentMonitor = "monitor"
)
