// Package ir provides the value types shared by every layer of the runtime.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps ir the foundational
// layer with no circular dependencies.
//
// Key design constraints:
//   - Events are immutable after construction; Equal compares kind and payload
//   - Machine identities are never reused within a process
//   - Choice logs carry logical decision indices only, never wall-clock time
//   - Choice logs hash through canonical JSON so identical schedules always
//     produce identical trace IDs
package ir
