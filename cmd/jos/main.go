// Command jos boots the simulated machine and walks a small scripted
// user program through the syscall vector.
package main

import (
	"flag"
	"fmt"
	"log"

	"jos-in-go/kernel"
	"jos-in-go/kernel/mem"
	"jos-in-go/kernel/syscall"
)

func main() {
	cfgPath := flag.String("config", "", "machine config YAML (defaults used when empty)")
	flag.Parse()

	cfg := kernel.DefaultConfig()
	if *cfgPath != "" {
		var err error
		cfg, err = kernel.LoadConfig(*cfgPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
	}

	k, err := kernel.Boot(cfg)
	if err != nil {
		log.Fatalf("boot: %v", err)
	}
	log.Printf("booted: %d task slots, %d pages, task 0 running", cfg.NTasks, cfg.MemoryPages)

	if v := k.Syscall(syscall.SysTest); v != syscall.TestValue {
		log.Fatalf("diagnostic syscall returned %d", v)
	}

	// write a banner from the bootstrap task's stack
	banner := []byte("Hello from task 0\n")
	cur := k.Sched().Cur()
	base := mem.USTACKTOP - uint32(cfg.StackPages)*mem.PGSIZE
	if err := cur.Pgdir.WriteVirt(base, banner); err != nil {
		log.Fatalf("write banner: %v", err)
	}
	k.Syscall(syscall.SysSetTextColor, 0x0A, 0x00)
	k.Syscall(syscall.SysPuts, base, uint32(len(banner)))

	child := k.Syscall(syscall.SysFork)
	log.Printf("fork -> child %d (parent pid %d)", child, k.Syscall(syscall.SysGetPID))

	log.Printf("pages: %d free / %d used", k.Syscall(syscall.SysGetNumFreePage), k.Syscall(syscall.SysGetNumUsedPage))

	k.Syscall(syscall.SysKill, uint32(child))
	log.Printf("killed child; ticks=%d", k.Syscall(syscall.SysGetTicks))

	for i := 0; i < 3; i++ {
		k.Tick()
	}

	fmt.Println("---- screen ----")
	fmt.Println(k.Screen().String())
}
