package modkit

import "firewatch/internal/modkit/module"

// Module is the common surface for pipeline modules
type Module = module.Module
