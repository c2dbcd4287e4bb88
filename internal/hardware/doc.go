// Package hardware is the boundary between the hub and the pins on the host.
//
// Everything above this package talks to a Hardware value: Actuate drives an
// output (digital level, PWM duty, servo, stepper, LCD) and Read samples an
// input (digital line, DHT11, ultrasonic ranger, LDR, matrix keypad). Two
// backends exist:
//
//   - Simulated: seeded, deterministic readings and an in-memory pin map.
//     Used on development machines and in tests.
//   - Raspi: a Raspberry Pi driven through gobot's raspi adaptor. Pins are
//     given in BCM numbering and translated to header pins internally.
//
// Errors wrap ErrHardware for transient faults. ErrDetached, ErrUnsupported
// and ErrInvalidPin are permanent; IsPermanent reports them so monitor loops
// can stop instead of retrying forever.
package hardware
