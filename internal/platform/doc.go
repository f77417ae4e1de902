// Package platform defines the interfaces between the router's control
// plane and its external collaborators: the network stack, the NAT engine,
// the SmartConfig provisioning transport, the button line and the status
// indicator output.
//
// The control plane never touches hardware or packet processing directly;
// it only sequences these collaborators. Real ports implement the
// interfaces against their SDK, the sim subpackage implements them in
// memory, and tests implement them with mocks.
//
// # Event delivery contract
//
// NetworkStack and SmartConfigTransport raise asynchronous events. An
// implementation must deliver them serialized with the control plane's
// other callbacks, in this codebase by posting onto the sched.Loop that
// owns the controllers. The controllers rely on this for their no-locking
// state machines.
package platform
