// Package l2augment owns Layer 2 (Augmentation) of the preprocessing stack.
//
// Responsibilities: stateless coordinate transforms (rotation, translation
// jitter, anisotropic scale), raw cloud centering, and the color+coordinate
// feature layout fed to the network.
// Key types: Augmenter, Rotation, Translation, Scale.
//
// Dependency rule: L2 may depend on L1, but never on L3+.
package l2augment
